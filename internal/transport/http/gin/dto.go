package httpgin

import (
	"time"

	"github.com/kirinyoku/rail-go/internal/domain"
)

type RegisterRequest struct {
	Username   string `json:"username" binding:"required,min=3"`
	Password   string `json:"password" binding:"required,min=6"`
	NationalID string `json:"national_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
}

type RegisterStaffRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type SessionResponse struct {
	Token    string           `json:"token"`
	Username string           `json:"username"`
	Role     domain.Role      `json:"role"`
	Customer *domain.Customer `json:"customer,omitempty"`
	Staff    *domain.Staff    `json:"staff,omitempty"`
}

type UpdateCustomerRequest struct {
	NationalID string `json:"national_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
}

type UpdateStaffRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type TrainRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Class       string `json:"class" binding:"required"`
}

type CreateWagonRequest struct {
	TrainID  string `json:"train_id" binding:"required,uuid"`
	Name     string `json:"name" binding:"required"`
	Capacity int    `json:"capacity" binding:"required,gt=0"`
}

type UpdateWagonRequest struct {
	TrainID string `json:"train_id" binding:"required,uuid"`
	Name    string `json:"name" binding:"required"`
}

type ScheduleRequest struct {
	TrainID     string `json:"train_id" binding:"required,uuid"`
	Origin      string `json:"origin" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	DepartsAt   string `json:"departs_at" binding:"required"`
	ArrivesAt   string `json:"arrives_at" binding:"required"`
	Price       int64  `json:"price" binding:"required,gt=0"`
}

type PassengerInput struct {
	NationalID string `json:"national_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
}

type PurchaseRequest struct {
	ScheduleID string           `json:"schedule_id" binding:"required,uuid"`
	Passengers []PassengerInput `json:"passengers" binding:"required,min=1,dive"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Available *int   `json:"available,omitempty"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
