package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenTramite/tramite/internal/process/apperr"
)

const (
	// defaultMaxAttempts bounds the conflict probe before the allocator
	// falls back to a timestamp-derived value.
	defaultMaxAttempts = 10

	// processNumberWidth is the zero-padded sequence width of a process
	// number, NNNNNN/YYYY. The format is an external contract.
	processNumberWidth = 1000000
)

// NumberAllocator issues process numbers and step ordinals. Callers must
// invoke it inside a transaction; the repository's ForUpdate reads hold the
// partition lock (year, or template) for the remainder of that transaction,
// so no two concurrent allocations in the same partition can both observe
// the same maximum.
type NumberAllocator struct {
	processes   ProcessRepository
	templates   TemplateRepository
	maxAttempts int
	now         func() time.Time
}

func NewNumberAllocator(processes ProcessRepository, templates TemplateRepository) *NumberAllocator {
	return &NumberAllocator{
		processes:   processes,
		templates:   templates,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
}

// WithMaxAttempts overrides the bounded-retry threshold.
func (a *NumberAllocator) WithMaxAttempts(n int) *NumberAllocator {
	if n > 0 {
		a.maxAttempts = n
	}
	return a
}

// FormatProcessNumber renders a sequence and year as NNNNNN/YYYY.
func FormatProcessNumber(seq, year int) string {
	return fmt.Sprintf("%06d/%04d", seq%processNumberWidth, year)
}

// AllocateProcessNumber returns the next unissued process number for the
// year. After maxAttempts colliding probes it falls back to a
// timestamp-derived sequence, trading strict sequentiality for liveness.
func (a *NumberAllocator) AllocateProcessNumber(ctx context.Context, tx *gorm.DB, year int) (string, error) {
	maxSeq, err := a.processes.MaxNumberSequenceInTx(ctx, tx, year)
	if err != nil {
		return "", err
	}

	seq := maxSeq + 1
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		candidate := FormatProcessNumber(seq, year)
		exists, err := a.processes.NumberExistsInTx(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		seq++
	}

	fallback := FormatProcessNumber(int(a.now().UnixMilli()%processNumberWidth), year)
	slog.Warn("process number allocation exhausted retries, using timestamp fallback",
		"year", year,
		"attempts", a.maxAttempts,
		"number", fallback,
	)
	exists, err := a.processes.NumberExistsInTx(ctx, tx, fallback)
	if err != nil {
		return "", err
	}
	if exists {
		return "", apperr.Conflict("could not allocate a unique process number for year %d", year)
	}
	return fallback, nil
}

// AllocateStepOrdinal returns the next free ordinal for the template,
// probing past collisions up to the bounded retry count.
func (a *NumberAllocator) AllocateStepOrdinal(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (int, error) {
	maxOrdinal, err := a.templates.MaxOrdinalForUpdateInTx(ctx, tx, templateID)
	if err != nil {
		return 0, err
	}

	ordinal := maxOrdinal + 1
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		exists, err := a.templates.OrdinalExistsInTx(ctx, tx, templateID, ordinal)
		if err != nil {
			return 0, err
		}
		if !exists {
			return ordinal, nil
		}
		ordinal++
	}
	return 0, apperr.Conflict("could not allocate a step ordinal for template %s", templateID)
}
