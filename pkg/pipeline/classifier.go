package pipeline

import (
	"context"

	"github.com/coolbeans/sc2patches/pkg/store"
)

// Change types a Classifier may assign.
const (
	ChangeBuff  = "buff"
	ChangeNerf  = "nerf"
	ChangeMixed = "mixed"
)

// Classifier labels each change of a patch as a buff, nerf or mixed change.
// It returns one label per change, in order; an empty label means
// unclassified.
type Classifier interface {
	Classify(ctx context.Context, patch *store.Patch) ([]string, error)
}

// PassThrough leaves every change unclassified.
type PassThrough struct{}

// Classify implements Classifier.
func (PassThrough) Classify(_ context.Context, patch *store.Patch) ([]string, error) {
	return make([]string, len(patch.Changes)), nil
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, patch *store.Patch) ([]string, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, patch *store.Patch) ([]string, error) {
	return f(ctx, patch)
}
