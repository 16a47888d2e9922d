package doctor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hackgods/clinic-scheduling-assistant/internal/apperr"
)

var ErrDoctorNotFound = fmt.Errorf("doctor %w", apperr.ErrNotFound)

// AmbiguousError is returned when a reference matches more than one doctor.
type AmbiguousError struct {
	Query      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("doctor %q is ambiguous, matches: %s", e.Query, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousError) Unwrap() error { return apperr.ErrAmbiguous }

// Directory answers doctor lookups using a single configured match mode.
type Directory struct {
	store Store
	mode  MatchMode
}

func NewDirectory(store Store, mode MatchMode) *Directory {
	if mode == "" {
		mode = MatchExact
	}
	return &Directory{store: store, mode: mode}
}

func (d *Directory) Mode() MatchMode { return d.mode }

func (d *Directory) FindByName(ctx context.Context, name string) ([]Doctor, error) {
	return d.store.Find(ctx, Query{Field: FieldName, Value: name, Mode: d.mode})
}

func (d *Directory) FindBySpecialty(ctx context.Context, specialty string) ([]Doctor, error) {
	return d.store.Find(ctx, Query{Field: FieldSpecialty, Value: specialty, Mode: d.mode})
}

// Find filters the catalog by specialty and name. Empty filters are ignored,
// so calling it with neither returns every doctor.
func (d *Directory) Find(ctx context.Context, specialty, name string) ([]Doctor, error) {
	specialty, name = strings.TrimSpace(specialty), strings.TrimSpace(name)

	switch {
	case specialty == "" && name == "":
		return d.store.List(ctx)
	case specialty == "":
		return d.FindByName(ctx, name)
	case name == "":
		return d.FindBySpecialty(ctx, specialty)
	}

	bySpecialty, err := d.FindBySpecialty(ctx, specialty)
	if err != nil {
		return nil, err
	}
	var result []Doctor
	for _, doc := range bySpecialty {
		if d.mode.Match(doc.Name, name) {
			result = append(result, doc)
		}
	}
	return result, nil
}

func (d *Directory) ListSpecialties(ctx context.Context) ([]string, error) {
	return d.store.Specialties(ctx)
}

// Resolve returns the one doctor matching ref by name.
func (d *Directory) Resolve(ctx context.Context, ref string) (Doctor, error) {
	if strings.TrimSpace(ref) == "" {
		return Doctor{}, apperr.E(apperr.ErrValidation, "doctor.resolve", errors.New("doctor name is required"))
	}

	matches, err := d.FindByName(ctx, ref)
	if err != nil {
		return Doctor{}, err
	}

	switch len(matches) {
	case 0:
		return Doctor{}, fmt.Errorf("%w: %q", ErrDoctorNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return Doctor{}, &AmbiguousError{Query: ref, Candidates: names}
	}
}
