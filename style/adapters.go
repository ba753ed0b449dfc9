package style

// Registrar is the engine capability set a style adapter needs: the three
// primitive operations every spec style reduces to.
type Registrar interface {
	RegisterScope(clause Clause, name string, body func())
	RegisterTest(name string, body any, tags ...string)
	RegisterIgnored(name string, body any, tags ...string)
}

// FeatureDSL is the thin adapter for the feature/scenario call shapes.
type FeatureDSL struct {
	R Registrar
}

// Feature opens a feature scope.
func (d FeatureDSL) Feature(name string, body func()) {
	d.R.RegisterScope(ClauseFeature, name, body)
}

// Scenario registers a test inside the current feature.
func (d FeatureDSL) Scenario(name string, body any, tags ...string) {
	d.R.RegisterTest(name, body, tags...)
}

// IgnoreScenario registers a scenario that reports as ignored instead of
// running.
func (d FeatureDSL) IgnoreScenario(name string, body any, tags ...string) {
	d.R.RegisterIgnored(name, body, tags...)
}

// WordDSL is the thin adapter for the subject/when/should call shapes.
type WordDSL struct {
	R Registrar
}

// Describe opens a plain subject scope.
func (d WordDSL) Describe(name string, body func()) {
	d.R.RegisterScope(ClauseDescribe, name, body)
}

// When opens a "<name> when" scope.
func (d WordDSL) When(name string, body func()) {
	d.R.RegisterScope(ClauseWhen, name, body)
}

// Should opens a "<name> should" scope.
func (d WordDSL) Should(name string, body func()) {
	d.R.RegisterScope(ClauseShould, name, body)
}

// Must opens a "<name> must" scope.
func (d WordDSL) Must(name string, body func()) {
	d.R.RegisterScope(ClauseMust, name, body)
}

// That opens a "<name> that" scope.
func (d WordDSL) That(name string, body func()) {
	d.R.RegisterScope(ClauseThat, name, body)
}

// It registers a test under the current scope chain.
func (d WordDSL) It(name string, body any, tags ...string) {
	d.R.RegisterTest(name, body, tags...)
}

// IgnoreIt registers a test that reports as ignored instead of running.
func (d WordDSL) IgnoreIt(name string, body any, tags ...string) {
	d.R.RegisterIgnored(name, body, tags...)
}
