package course_generate

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/jobs/queue"
	jobrt "github.com/yungbote/coursegen-backend/internal/jobs/runtime"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/generation"
	"github.com/yungbote/coursegen-backend/internal/modules/coursegen/quota"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
	"github.com/yungbote/coursegen-backend/internal/pkg/httpx"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// errNotGenerating aborts the publish transaction when the course left
// GENERATING while the job was running.
var errNotGenerating = errors.New("course is no longer generating")

var errSkip = errors.New("skip")

// Run takes a course from GENERATING to PUBLISHED, or to FAILED with the
// reservation refunded. Deliveries are at-least-once, so a course that is
// gone or already PUBLISHED is a silent no-op.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	var in queue.CourseGeneratePayload
	if err := jc.Decode(&in); err != nil {
		return err
	}
	log := jc.Log.With("course_id", in.CourseID, "user_id", in.UserID)
	dbc := dbctx.Context{Ctx: jc.Ctx}

	jc.Progress("guard")
	course, err := p.courses.GetByID(dbc, in.CourseID)
	if err != nil {
		return fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		log.Info("Course no longer exists; skipping")
		return nil
	}
	reserved := p.reservedTokens(log, in)

	switch course.Status {
	case types.CourseStatusPublished:
		log.Info("Course already published; skipping")
		return nil
	case types.CourseStatusFailed:
		if err := p.reopen(dbc, log, in, reserved); err != nil {
			if errors.Is(err, errSkip) {
				log.Info("Course changed state before retry; skipping")
				return nil
			}
			return err
		}
	}

	jc.Progress("generate")
	doc, err := p.gen.GenerateCourse(jc.Ctx, generation.CourseRequest{
		Topic:       in.Topic,
		Description: in.Description,
		Language:    in.Language,
		Difficulty:  in.Difficulty,
		RawText:     in.RawText,
	})
	if err != nil {
		return p.fail(jc, log, in, reserved, "generate", backendError(log, err))
	}
	if want := p.profiles.For(in.Difficulty); len(doc.Modules) != want.ModuleCount {
		log.Warn("Generated module count differs from profile", "modules", len(doc.Modules), "profile_modules", want.ModuleCount)
	}

	// all network I/O happens before the publish transaction opens
	jc.Progress("media")
	urls := p.media.Resolve(jc.Ctx, searchKeywords(doc))

	actual, err := quota.EstimateTokens(doc)
	if err != nil {
		return p.fail(jc, log, in, reserved, "estimate", err)
	}
	modules, err := buildTree(doc, urls, in.Language)
	if err != nil {
		return p.fail(jc, log, in, reserved, "build", err)
	}

	jc.Progress("publish")
	err = p.publish(jc.Ctx, in, modules, reserved, actual)
	if errors.Is(err, errNotGenerating) {
		return p.lostRace(jc, log, in)
	}
	if err != nil {
		return p.fail(jc, log, in, reserved, "publish", err)
	}

	log.Info("Course published",
		"modules", len(modules),
		"reserved_tokens", reserved,
		"actual_tokens", actual,
		"attempt", jc.Attempt(),
	)
	return nil
}

// reopen moves a FAILED course back to GENERATING for a retry. The failed
// attempt refunded its reservation, so the retry reserves again. Both
// writes share one transaction; a lost guard rolls the reservation back.
func (p *Pipeline) reopen(dbc dbctx.Context, log *logger.Logger, in queue.CourseGeneratePayload, reserved int) error {
	err := p.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbc.WithTx(tx)
		if _, err := p.ledger.Reserve(txc, in.UserID, reserved); err != nil {
			return fmt.Errorf("re-reserve: %w", err)
		}
		ok, err := p.courses.TransitionStatus(txc, in.CourseID, []string{types.CourseStatusFailed}, types.CourseStatusGenerating, map[string]interface{}{
			"failure_reason":  "",
			"reserved_tokens": reserved,
		})
		if err != nil {
			return fmt.Errorf("reopen course: %w", err)
		}
		if !ok {
			return errSkip
		}
		return nil
	})
	if errors.Is(err, quota.ErrQuotaExceeded) {
		log.Warn("Quota exhausted before retry", "reserved_tokens", reserved)
		return jobrt.Permanent(err)
	}
	if err != nil {
		return err
	}
	log.Info("Reopened failed course for retry", "reserved_tokens", reserved)
	return nil
}

// reservedTokens is what the API debited for this job. The payload carries
// the amount; the live profile table is checked for drift.
func (p *Pipeline) reservedTokens(log *logger.Logger, in queue.CourseGeneratePayload) int {
	live := p.profiles.TokenBudgetFor(in.Difficulty)
	if in.ProfileVersion != p.profiles.Version() {
		log.Warn("Profile table changed since reservation",
			"reserved_profile_version", in.ProfileVersion,
			"live_profile_version", p.profiles.Version(),
		)
	}
	if in.ReservedTokens > 0 && in.ReservedTokens != live {
		log.Warn("Reserved budget differs from live profile", "reserved_tokens", in.ReservedTokens, "live_tokens", live)
		return in.ReservedTokens
	}
	return live
}

// publish writes the whole tree, reconciles quota and flips the status in
// one bounded transaction.
func (p *Pipeline) publish(ctx context.Context, in queue.CourseGeneratePayload, modules []*types.CourseModule, reserved, actual int) error {
	tctx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()
	return p.db.WithContext(tctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: tctx, Tx: tx}
		if err := p.courses.SaveTree(txc, in.CourseID, modules); err != nil {
			return fmt.Errorf("save modules: %w", err)
		}
		if err := p.ledger.Reconcile(txc, in.UserID, actual-reserved); err != nil {
			return err
		}
		ok, err := p.courses.TransitionStatus(txc, in.CourseID, []string{types.CourseStatusGenerating}, types.CourseStatusPublished, map[string]interface{}{
			"reserved_tokens": reserved,
			"actual_tokens":   actual,
			"failure_reason":  "",
		})
		if err != nil {
			return fmt.Errorf("publish course: %w", err)
		}
		if !ok {
			return errNotGenerating
		}
		return nil
	})
}

// lostRace handles a course that was deleted or published by another
// delivery while this one was generating. Nothing was written, and a
// deleted course had its reservation returned by the delete.
func (p *Pipeline) lostRace(jc *jobrt.Context, log *logger.Logger, in queue.CourseGeneratePayload) error {
	course, err := p.courses.GetByID(dbctx.Context{Ctx: jc.Ctx}, in.CourseID)
	if err != nil {
		return fmt.Errorf("reload course: %w", err)
	}
	if course == nil {
		log.Info("Course deleted during generation; discarding output")
		return nil
	}
	log.Info("Course left GENERATING during generation; discarding output", "status", course.Status)
	return nil
}

// fail marks the course FAILED, refunds the reservation and returns the
// cause so the queue applies its retry policy. The refund is tied to the
// guarded transition so a course that already left GENERATING is never
// refunded twice.
func (p *Pipeline) fail(jc *jobrt.Context, log *logger.Logger, in queue.CourseGeneratePayload, reserved int, stage string, cause error) error {
	log.Warn("Course generation failed", "stage", stage, "attempt", jc.Attempt(), "final_attempt", jc.FinalAttempt(), "error", cause)

	dbc := dbctx.Context{Ctx: jc.Ctx}
	ok, err := p.courses.TransitionStatus(dbc, in.CourseID, []string{types.CourseStatusGenerating}, types.CourseStatusFailed, map[string]interface{}{
		"failure_reason": stage + ": " + cause.Error(),
	})
	switch {
	case err != nil:
		log.Error("Marking course failed did not persist", "error", err)
	case ok:
		p.refund(jc, log, in, reserved)
	default:
		log.Info("Course left GENERATING before failure was recorded; no refund")
	}
	return fmt.Errorf("%s: %w", stage, cause)
}

// backendError marks an upstream rejection that no retry can fix, such as
// a bad key or a bad request, as permanent.
func backendError(log *logger.Logger, err error) error {
	code := httpx.StatusCode(err)
	if code == 0 || httpx.IsRetryableError(err) {
		return err
	}
	log.Warn("Generation backend rejected request", "status_code", code)
	return jobrt.Permanent(err)
}

func (p *Pipeline) refund(jc *jobrt.Context, log *logger.Logger, in queue.CourseGeneratePayload, reserved int) {
	if err := p.ledger.Refund(dbctx.Context{Ctx: jc.Ctx}, in.UserID, reserved); err != nil {
		log.Error("Quota refund failed",
			"severity", "critical",
			"needs_manual_reconciliation", true,
			"reserved_tokens", reserved,
			"error", err,
		)
	}
}
