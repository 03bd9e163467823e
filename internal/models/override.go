package models

type ManualOverride struct {
	Student    string `db:"student" json:"student" validate:"required,max=64"`
	Day        string `db:"day" json:"day" validate:"required,datetime=2006-01-02"`
	Present    bool   `db:"present" json:"present"`
	RecordedAt int64  `db:"recorded_at" json:"recorded_at"`
}

// unique_together should be handled on DB level:
/*
CREATE TABLE manual_overrides (
    student TEXT NOT NULL,
    day VARCHAR(10) NOT NULL,
    present BOOLEAN NOT NULL,
    recorded_at BIGINT NOT NULL,
    CONSTRAINT manual_overrides_pkey PRIMARY KEY (student, day)
);
*/
