package models

import (
	"time"
)

type DayToken struct {
	Day        string    `json:"day"`
	Token      string    `json:"token"`
	IssuedTime time.Time `json:"issued_dttm_utc"`
}
