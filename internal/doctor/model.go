package doctor

import (
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling-assistant/internal/clock"
)

type Doctor struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Specialty string          `json:"specialty"`
	WorkStart clock.TimeOfDay `json:"work_start"`
	WorkEnd   clock.TimeOfDay `json:"work_end"`
}
