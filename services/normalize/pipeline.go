// Package normalize turns scraped ideas into the relational entities the
// rest of the system reads: users, companies, ideas, descriptions and
// catalysts.
package normalize

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"vicharvest/lib/scrapers/vic"
	"vicharvest/lib/telemetry"
	"vicharvest/services/normalize/db"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("vicharvest.services.normalize")

const (
	report_pipeline_lookup    = "pipeline.lookup"
	report_pipeline_date      = "pipeline.parse-date"
	report_pipeline_reference = "pipeline.persist-reference"
	report_pipeline_idea      = "pipeline.persist-idea"
	report_pipeline_text      = "pipeline.persist-text"
	report_pipeline_duplicate = "pipeline.duplicate"
)

var (
	// ErrPersistenceConflict wraps storage constraint violations, the
	// record is skipped.
	ErrPersistenceConflict = errors.New("persistence conflict")
	// ErrDuplicateIdea is returned for an already ingested link when
	// Options.UniqueLinks is set.
	ErrDuplicateIdea = errors.New("idea link already ingested")
)

type Options struct {
	// UniqueLinks rejects records whose link already has an idea. By
	// default every ingestion creates a new idea.
	UniqueLinks bool
}

type Pipeline struct {
	qry    *db.Queries
	makeTx db.MakeTx
	opts   Options
	tel    telemetry.API
}

func NewPipeline(database *sql.DB, opts Options, tel telemetry.API) *Pipeline {
	return &Pipeline{
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
		opts:   opts,
		tel:    telemetry.NewScopedAPI("normalize", tel),
	}
}

type Result struct {
	IdeaID     string
	Date       time.Time
	NewUser    bool
	NewCompany bool
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isConstraintViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "constraint")
}

func (p *Pipeline) persistError(id string, err error) error {
	p.tel.ReportBroken(id, err)
	if isConstraintViolation(err) {
		return fmt.Errorf("%w: %w", ErrPersistenceConflict, err)
	}
	return err
}

// Ingest stores one scraped idea.
//
// Reference rows (user, company), the idea, and its texts are committed
// separately, in that order. A failure stops at the step it happened in,
// rows committed by earlier steps are kept.
func (p *Pipeline) Ingest(ctx context.Context, record vic.ScrapedIdea) (Result, error) {
	ctx, span := tracer.Start(ctx, "Ingest")
	defer span.End()

	span.SetAttributes(
		attribute.String("link", record.Link),
		attribute.String("ticker", record.Ticker),
	)

	result, err := p.ingest(ctx, record)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(attribute.String("idea_id", result.IdeaID))
	return result, nil
}

func (p *Pipeline) ingest(ctx context.Context, record vic.ScrapedIdea) (Result, error) {
	if p.opts.UniqueLinks {
		exists, err := p.qry.IdeaExistsByLink(ctx, record.Link)
		if err != nil {
			p.tel.ReportBroken(report_pipeline_lookup, err)
			return Result{}, err
		}
		if exists {
			p.tel.ReportDebug(report_pipeline_duplicate, record.Link)
			return Result{}, fmt.Errorf("%w: %s", ErrDuplicateIdea, record.Link)
		}
	}

	var newUser *db.CreateUserParams
	if record.UserLink != "" {
		_, err := p.qry.GetUser(ctx, record.UserLink)
		if errors.Is(err, sql.ErrNoRows) {
			newUser = &db.CreateUserParams{
				UserLink: record.UserLink,
				Username: nullString(record.Username),
			}
		} else if err != nil {
			p.tel.ReportBroken(report_pipeline_lookup, err, record.UserLink)
			return Result{}, err
		}
	}

	var newCompany *db.CreateCompanyParams
	if record.Ticker != "" {
		_, err := p.qry.GetCompany(ctx, record.Ticker)
		if errors.Is(err, sql.ErrNoRows) {
			newCompany = &db.CreateCompanyParams{
				Ticker:      record.Ticker,
				CompanyName: nullString(record.CompanyName),
			}
		} else if err != nil {
			p.tel.ReportBroken(report_pipeline_lookup, err, record.Ticker)
			return Result{}, err
		}
	}

	date, err := vic.ParseDate(record.Date)
	if err != nil {
		p.tel.ReportWarning(report_pipeline_date, err, record.Link)
		return Result{}, err
	}

	ideaId := uuid.New().String()
	idea := db.CreateIdeaParams{
		ID:              ideaId,
		Link:            record.Link,
		CompanyID:       nullString(record.Ticker),
		UserID:          nullString(record.UserLink),
		Date:            date.Format(time.DateTime),
		IsShort:         record.IsShort,
		IsContestWinner: record.IsContestWinner,
	}

	if newUser != nil || newCompany != nil {
		err = p.withTx(ctx, func(txqry *db.Queries) error {
			if newUser != nil {
				err := txqry.CreateUser(ctx, *newUser)
				if err != nil {
					return err
				}
			}
			if newCompany != nil {
				return txqry.CreateCompany(ctx, *newCompany)
			}
			return nil
		})
		if err != nil {
			return Result{}, p.persistError(report_pipeline_reference, err)
		}
	}

	err = p.withTx(ctx, func(txqry *db.Queries) error {
		return txqry.CreateIdea(ctx, idea)
	})
	if err != nil {
		return Result{}, p.persistError(report_pipeline_idea, err)
	}

	err = p.withTx(ctx, func(txqry *db.Queries) error {
		err := txqry.CreateDescription(ctx, db.CreateDescriptionParams{
			IdeaID:      ideaId,
			Description: nullString(record.Description),
		})
		if err != nil {
			return err
		}
		return txqry.CreateCatalysts(ctx, db.CreateCatalystsParams{
			IdeaID:    ideaId,
			Catalysts: nullString(record.Catalysts),
		})
	})
	if err != nil {
		return Result{}, p.persistError(report_pipeline_text, err)
	}

	return Result{
		IdeaID:     ideaId,
		Date:       date,
		NewUser:    newUser != nil,
		NewCompany: newCompany != nil,
	}, nil
}

func (p *Pipeline) withTx(ctx context.Context, fn func(txqry *db.Queries) error) error {
	txqry, discard, commit, err := p.makeTx(ctx)
	if err != nil {
		return err
	}
	defer discard()

	err = fn(txqry)
	if err != nil {
		return err
	}
	return commit()
}
