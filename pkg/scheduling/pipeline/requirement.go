package pipeline

import (
	"fmt"

	gferrors "github.com/vnykmshr/goplumb/pkg/common/errors"
)

// Requirement gates a stage on the most recent status of another stage.
type Requirement struct {
	Ref  Reference
	Cond Condition
}

// Require builds a requirement on ref.
func Require(ref Reference, cond Condition) Requirement {
	return Requirement{Ref: ref, Cond: cond}
}

// RequireID builds a requirement on the stage named id.
func RequireID(id string, cond Condition) Requirement {
	return Requirement{Ref: ByID(id), Cond: cond}
}

// RequireOffset builds a requirement on the stage delta positions away.
func RequireOffset(delta int, cond Condition) Requirement {
	return Requirement{Ref: ByIncrement(delta), Cond: cond}
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s: %s", r.Ref, r.Cond)
}

// eligible reports whether every requirement holds in ctx. Requirements are
// checked in order and evaluation stops at the first one that does not hold.
// A requirement whose target has no record yet is an error, including the
// terminal target.
func eligible(reqs []Requirement, ctx Context) (bool, error) {
	for _, req := range reqs {
		target, err := req.Ref.Resolve(ctx)
		if err != nil {
			return false, err
		}
		rec, ok := latestRecord(ctx.Records, target.ID)
		if !ok || target.Terminal() {
			return false, newError(gferrors.ErrMissingRecord, ctx.Sequence, ctx.Records).
				withReference(req.Ref.String()).
				withIdentifier(target.ID).
				withDetail(fmt.Sprintf("requirement %s targets %s which has not produced a status", req, target))
		}
		if !req.Cond.Met(rec.Status) {
			return false, nil
		}
	}
	return true, nil
}

// latestRecord searches backward so repeated executions of the same
// identifier resolve to the freshest status.
func latestRecord(records []Record, id string) (Record, bool) {
	if id == "" {
		return Record{}, false
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].StageID == id {
			return records[i], true
		}
	}
	return Record{}, false
}
