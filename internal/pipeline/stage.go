package pipeline

// Stage is the narrow interface every pipeline stage (internal/stage.*)
// implements, per spec.md §9's "dynamic dispatch over stages as a tagged
// variant behind a narrow interface".
type Stage interface {
	// Name identifies the stage for logging and error messages; need not
	// be unique.
	Name() string

	// Inputs and Outputs enumerate this stage's bucket ports in a stable
	// order. The resolver mutates each Port in place to its resolved form.
	Inputs() []*Port
	Outputs() []*Port

	// Prepare runs once, after resolution and before any beatmap set is
	// processed, letting a stage do one-time setup (e.g. a difficulty
	// table lookup) that would be wasteful to repeat per set.
	Prepare() error

	// Apply runs once per beatmap set, reading its resolved input ports
	// from store and writing its resolved output ports back.
	Apply(store *Store) error
}
