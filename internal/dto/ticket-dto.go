package dto

import (
	"github.com/aarondl/null/v8"

	"turnos-api/internal/entities"
	"turnos-api/pkg/utils"
)

type CreateTicketDTO struct {
	BranchID int64       `json:"sucursal_id" validate:"required,gt=0"`
	Name     string      `json:"nombre" validate:"required,min=1,max=150"`
	Age      int         `json:"edad" validate:"gte=0,lte=150"`
	Phone    null.String `json:"telefono" validate:"omitempty,phone"`
}

type TicketIDDTO struct {
	TicketID int64 `json:"turno_id" validate:"required,gt=0"`
}

type CreatedTicketDTO struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type TransitionDTO struct {
	Status   string `json:"status"`
	Changed  bool   `json:"changed"`
	BranchID *int64 `json:"sucursal_id,omitempty"`
}

// TicketDTO - каноническое внешнее представление тикета.
type TicketDTO struct {
	ID        int64       `json:"id"`
	BranchID  int64       `json:"branch_id"`
	Name      string      `json:"name"`
	Age       int         `json:"age"`
	Phone     null.String `json:"phone"`
	State     string      `json:"state"`
	CreatedAt string      `json:"created_at"`
	StartedAt *string     `json:"started_at"`
	UpdatedAt string      `json:"updated_at"`
}

func NewTicketDTO(t entities.Ticket) TicketDTO {
	return TicketDTO{
		ID:        t.ID,
		BranchID:  t.BranchID,
		Name:      t.Name,
		Age:       t.Age,
		Phone:     t.Phone,
		State:     string(t.State),
		CreatedAt: utils.FormatTimestamp(t.CreatedAt),
		StartedAt: utils.NullTimeToString(t.StartedAt),
		UpdatedAt: utils.FormatTimestamp(t.UpdatedAt),
	}
}

func NewTicketDTOs(tickets []entities.Ticket) []TicketDTO {
	out := make([]TicketDTO, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, NewTicketDTO(t))
	}
	return out
}
