package models

// Plan: тарифный план каталога. Цена хранится в минимальных единицах валюты.
type Plan struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Price        int64   `json:"price"`
	Description  *string `json:"description"`
	DurationDays int     `json:"duration_days"`
}

// PlanInput: атрибуты нового плана. Указатели позволяют отличить
// отсутствующее поле от нулевого значения.
type PlanInput struct {
	Name         string
	Price        *int64
	DurationDays *int
	Description  *string
}
