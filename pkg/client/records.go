package client

import (
	"context"
	"net/http"

	"github.com/mehmetcc/medgate/internal/records"
)

func (c *Client) ListPatients(ctx context.Context) ([]records.Patient, error) {
	var out []records.Patient
	err := c.call(ctx, http.MethodGet, "/records/patients", nil, &out)
	return out, err
}

func (c *Client) ListEquipment(ctx context.Context) ([]records.Equipment, error) {
	var out []records.Equipment
	err := c.call(ctx, http.MethodGet, "/records/equipment", nil, &out)
	return out, err
}

func (c *Client) ListStaff(ctx context.Context) ([]records.StaffMember, error) {
	var out []records.StaffMember
	err := c.call(ctx, http.MethodGet, "/records/staff", nil, &out)
	return out, err
}
