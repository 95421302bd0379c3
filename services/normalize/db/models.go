package db

import (
	"database/sql"
)

type Catalyst struct {
	IdeaID    string
	Catalysts sql.NullString
}

type Company struct {
	Ticker      string
	CompanyName sql.NullString
}

type Description struct {
	IdeaID      string
	Description sql.NullString
}

type Idea struct {
	ID              string
	Link            string
	CompanyID       sql.NullString
	UserID          sql.NullString
	Date            string
	IsShort         bool
	IsContestWinner bool
}

type User struct {
	UserLink string
	Username sql.NullString
}
