package db

import (
	"context"
	"database/sql"
)

const getUser = `-- name: GetUser :one
select user_link, username from users
where user_link = ?
`

func (q *Queries) GetUser(ctx context.Context, userLink string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, userLink)
	var i User
	err := row.Scan(&i.UserLink, &i.Username)
	return i, err
}

const getCompany = `-- name: GetCompany :one
select ticker, company_name from companies
where ticker = ?
`

func (q *Queries) GetCompany(ctx context.Context, ticker string) (Company, error) {
	row := q.db.QueryRowContext(ctx, getCompany, ticker)
	var i Company
	err := row.Scan(&i.Ticker, &i.CompanyName)
	return i, err
}

const createUser = `-- name: CreateUser :exec
insert into users(user_link, username) values (?, ?)
on conflict (user_link) do nothing
`

type CreateUserParams struct {
	UserLink string
	Username sql.NullString
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser, arg.UserLink, arg.Username)
	return err
}

const createCompany = `-- name: CreateCompany :exec
insert into companies(ticker, company_name) values (?, ?)
on conflict (ticker) do nothing
`

type CreateCompanyParams struct {
	Ticker      string
	CompanyName sql.NullString
}

func (q *Queries) CreateCompany(ctx context.Context, arg CreateCompanyParams) error {
	_, err := q.db.ExecContext(ctx, createCompany, arg.Ticker, arg.CompanyName)
	return err
}

const createIdea = `-- name: CreateIdea :exec
insert into ideas(id, link, company_id, user_id, date, is_short, is_contest_winner)
values (?, ?, ?, ?, ?, ?, ?)
`

type CreateIdeaParams struct {
	ID              string
	Link            string
	CompanyID       sql.NullString
	UserID          sql.NullString
	Date            string
	IsShort         bool
	IsContestWinner bool
}

func (q *Queries) CreateIdea(ctx context.Context, arg CreateIdeaParams) error {
	_, err := q.db.ExecContext(ctx, createIdea,
		arg.ID,
		arg.Link,
		arg.CompanyID,
		arg.UserID,
		arg.Date,
		arg.IsShort,
		arg.IsContestWinner,
	)
	return err
}

const createDescription = `-- name: CreateDescription :exec
insert into descriptions(idea_id, description) values (?, ?)
`

type CreateDescriptionParams struct {
	IdeaID      string
	Description sql.NullString
}

func (q *Queries) CreateDescription(ctx context.Context, arg CreateDescriptionParams) error {
	_, err := q.db.ExecContext(ctx, createDescription, arg.IdeaID, arg.Description)
	return err
}

const createCatalysts = `-- name: CreateCatalysts :exec
insert into catalyst(idea_id, catalysts) values (?, ?)
`

type CreateCatalystsParams struct {
	IdeaID    string
	Catalysts sql.NullString
}

func (q *Queries) CreateCatalysts(ctx context.Context, arg CreateCatalystsParams) error {
	_, err := q.db.ExecContext(ctx, createCatalysts, arg.IdeaID, arg.Catalysts)
	return err
}

const ideaExistsByLink = `-- name: IdeaExistsByLink :one
select exists(select 1 from ideas where link = ?)
`

func (q *Queries) IdeaExistsByLink(ctx context.Context, link string) (bool, error) {
	row := q.db.QueryRowContext(ctx, ideaExistsByLink, link)
	var exists int64
	err := row.Scan(&exists)
	return exists != 0, err
}

const getIdea = `-- name: GetIdea :one
select id, link, company_id, user_id, date, is_short, is_contest_winner from ideas
where id = ?
`

func (q *Queries) GetIdea(ctx context.Context, id string) (Idea, error) {
	row := q.db.QueryRowContext(ctx, getIdea, id)
	var i Idea
	err := row.Scan(
		&i.ID,
		&i.Link,
		&i.CompanyID,
		&i.UserID,
		&i.Date,
		&i.IsShort,
		&i.IsContestWinner,
	)
	return i, err
}

const getIdeasByUser = `-- name: GetIdeasByUser :many
select id, link, company_id, user_id, date, is_short, is_contest_winner from ideas
where user_id = ?
order by date
`

func (q *Queries) GetIdeasByUser(ctx context.Context, userLink string) ([]Idea, error) {
	rows, err := q.db.QueryContext(ctx, getIdeasByUser, userLink)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Idea
	for rows.Next() {
		var i Idea
		if err := rows.Scan(
			&i.ID,
			&i.Link,
			&i.CompanyID,
			&i.UserID,
			&i.Date,
			&i.IsShort,
			&i.IsContestWinner,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDescription = `-- name: GetDescription :one
select idea_id, description from descriptions
where idea_id = ?
`

func (q *Queries) GetDescription(ctx context.Context, ideaID string) (Description, error) {
	row := q.db.QueryRowContext(ctx, getDescription, ideaID)
	var i Description
	err := row.Scan(&i.IdeaID, &i.Description)
	return i, err
}

const getCatalysts = `-- name: GetCatalysts :one
select idea_id, catalysts from catalyst
where idea_id = ?
`

func (q *Queries) GetCatalysts(ctx context.Context, ideaID string) (Catalyst, error) {
	row := q.db.QueryRowContext(ctx, getCatalysts, ideaID)
	var i Catalyst
	err := row.Scan(&i.IdeaID, &i.Catalysts)
	return i, err
}

const countUsers = `-- name: CountUsers :one
select count(*) from users
`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUsers)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countCompanies = `-- name: CountCompanies :one
select count(*) from companies
`

func (q *Queries) CountCompanies(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countCompanies)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countIdeas = `-- name: CountIdeas :one
select count(*) from ideas
`

func (q *Queries) CountIdeas(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countIdeas)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countPerformance = `-- name: CountPerformance :one
select count(*) from performance
`

func (q *Queries) CountPerformance(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPerformance)
	var count int64
	err := row.Scan(&count)
	return count, err
}
