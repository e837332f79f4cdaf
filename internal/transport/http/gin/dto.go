package httpgin

import "time"

type CreateBookingRequest struct {
	ExperienceID  int64   `json:"experienceId" binding:"required"`
	SlotID        int64   `json:"slotId" binding:"required"`
	CustomerName  string  `json:"customerName" binding:"required"`
	CustomerEmail string  `json:"customerEmail" binding:"required,email"`
	CustomerPhone string  `json:"customerPhone" binding:"required"`
	Guests        int     `json:"numberOfGuests" binding:"required,gte=1"`
	PromoCode     string  `json:"promoCode"`
	Discount      float64 `json:"discount" binding:"gte=0"`
	TotalPrice    float64 `json:"totalPrice" binding:"gte=0"`
}

type ValidatePromoRequest struct {
	Code     string  `json:"code" binding:"required"`
	Subtotal float64 `json:"subtotal" binding:"gte=0"`
}

type CreateExperienceRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Location    string   `json:"location" binding:"required"`
	Duration    string   `json:"duration" binding:"required"`
	Price       float64  `json:"price" binding:"gte=0"`
	Images      []string `json:"images"`
	Rating      float64  `json:"rating" binding:"gte=0,lte=5"`
	Reviews     int      `json:"reviews" binding:"gte=0"`
	Category    string   `json:"category"`
	Highlights  []string `json:"highlights"`
	Included    []string `json:"included"`
	NotIncluded []string `json:"notIncluded"`
}

type CreateSlotsRequest struct {
	Slots []SlotInput `json:"slots" binding:"required,min=1,dive"`
}

type SlotInput struct {
	Date           string `json:"date" binding:"required"`
	Time           string `json:"time" binding:"required"`
	AvailableSpots int    `json:"availableSpots" binding:"gte=0"`
	TotalSpots     int    `json:"totalSpots" binding:"required,gte=1"`
}

type CreateExperienceResponse struct {
	ExperienceID int64 `json:"experienceId"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
