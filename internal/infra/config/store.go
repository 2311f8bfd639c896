package config

// FileStore binds configuration load and save operations to a single file
// path, so callers reloading on an external signal do not carry the path
// around themselves.
type FileStore struct {
	path string
}

// NewFileStore creates a store bound to the given config file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the bound file, merging with defaults.
func (s *FileStore) Load() (*Config, error) {
	return Load(s.path)
}

// Save persists the given configuration atomically to the bound file.
func (s *FileStore) Save(cfg *Config) error {
	return cfg.Save(s.path)
}

// Path returns the bound file path.
func (s *FileStore) Path() string {
	return s.path
}
