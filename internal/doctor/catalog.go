package doctor

import (
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling-assistant/internal/clock"
)

var catalogSpecialties = []string{
	"General Medicine",
	"Cardiology",
	"Dermatology",
	"Pediatrics",
	"Orthopedics",
	"Neurology",
	"ENT",
}

// Reference is the doctor every catalog starts with.
func Reference() Doctor {
	return Doctor{
		ID:        uuid.New(),
		Name:      "Dr. Rao",
		Specialty: "General Medicine",
		WorkStart: clock.At(9, 0),
		WorkEnd:   clock.At(17, 0),
	}
}

// Catalog returns Reference followed by extra generated doctors with unique
// names and working hours between 08:00 and 21:00.
func Catalog(faker *gofakeit.Faker, extra int) []Doctor {
	doctors := []Doctor{Reference()}
	seen := map[string]bool{normalize(doctors[0].Name): true}

	for attempts := 0; len(doctors) < extra+1 && attempts < extra*20; attempts++ {
		name := "Dr. " + faker.LastName()
		if seen[normalize(name)] || strings.TrimSpace(name) == "Dr." {
			continue
		}
		seen[normalize(name)] = true

		start := clock.At(faker.Number(8, 13), 0)
		end := clock.At(min(start.Hour()+faker.Number(4, 8), 21), 0)
		doctors = append(doctors, Doctor{
			ID:        uuid.New(),
			Name:      name,
			Specialty: faker.RandomString(catalogSpecialties),
			WorkStart: start,
			WorkEnd:   end,
		})
	}
	return doctors
}
