package bleadv

// ConfigCache persists named advertising profiles across runs.
type ConfigCache interface {
	Store(name string, p Profile, replace bool) error
	Load(name string) (Profile, error)
	Clear() error
}
