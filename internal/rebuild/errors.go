package rebuild

import (
	"fmt"

	"github.com/bikesim/drivetrain/pkg/core"
)

// Stage names the part of a rebuild that failed.
type Stage string

const (
	StageGeometry Stage = "geometry"
	StageAssembly Stage = "assembly"
	StageTeardown Stage = "teardown"
)

// RebuildError reports a rebuild that did not produce a chain. It is never
// fatal. After StageGeometry or StageTeardown the previous chain is still in
// place; after StageAssembly there is no chain.
type RebuildError struct {
	Stage   Stage
	Trigger core.TriggerKind
	Err     error
}

func (e *RebuildError) Error() string {
	return fmt.Sprintf("rebuild (%s) failed at %s: %v", e.Trigger, e.Stage, e.Err)
}

func (e *RebuildError) Unwrap() error {
	return e.Err
}
