package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type Experience struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Duration    string    `json:"duration"`
	Price       float64   `json:"price"`
	Images      []string  `json:"images"`
	Rating      float64   `json:"rating"`
	Reviews     int       `json:"reviews"`
	Category    string    `json:"category"`
	Highlights  []string  `json:"highlights"`
	Included    []string  `json:"included"`
	NotIncluded []string  `json:"notIncluded"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Slot is a bookable date/time instance of an experience with finite
// capacity. AvailableSpots stays within [0, TotalSpots] at all times;
// the only mutation path is the reservation decrement.
type Slot struct {
	ID             int64     `json:"id"`
	ExperienceID   int64     `json:"experienceId"`
	Date           time.Time `json:"date"`
	Time           string    `json:"time"`
	AvailableSpots int       `json:"availableSpots"`
	TotalSpots     int       `json:"totalSpots"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Customer fields are opaque strings to the reservation engine.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Booking struct {
	ID           uuid.UUID     `json:"id"`
	ExperienceID int64         `json:"experienceId"`
	SlotID       int64         `json:"slotId"`
	Customer     Customer      `json:"customer"`
	Guests       int           `json:"numberOfGuests"`
	PromoCode    string        `json:"promoCode,omitempty"`
	Discount     float64       `json:"discount"`
	TotalPrice   float64       `json:"totalPrice"`
	Status       BookingStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

type BookingWithDetails struct {
	Booking
	Experience Experience `json:"experience"`
	Slot       Slot       `json:"slot"`
}

type ExperienceWithSlots struct {
	Experience
	Slots []Slot `json:"slots"`
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount is the result of validating a promo code against a subtotal.
type Discount struct {
	Code   string       `json:"code"`
	Type   DiscountType `json:"type"`
	Value  float64      `json:"value"`
	Amount float64      `json:"discount"`
}
