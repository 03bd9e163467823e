package models

type Holiday struct {
	Day  string `db:"day" json:"day" validate:"required,datetime=2006-01-02"`
	Note string `db:"note" json:"note"`
}
