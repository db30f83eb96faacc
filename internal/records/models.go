package records

import (
	"time"

	"github.com/mehmetcc/medgate/internal/person"
)

type Patient struct {
	ID         int64     `json:"id"`
	FullName   string    `json:"full_name"`
	Ward       string    `json:"ward"`
	AdmittedAt time.Time `json:"admitted_at"`
}

type Equipment struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Location string `json:"location"`
}

type StaffMember struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Role     person.Role `json:"role"`
}
