package config

// ExtractConfig contains the defaults for the extract command.
type ExtractConfig struct {
	// Dir is the output directory.
	Dir string
	// Concurrency is the number of files extracted at the same time.
	Concurrency int
	NoOverwrite  bool
	SkipChecksum bool
}

// ForExtract returns configuration for extract from the [extract] section.
//
// Missing or malformed keys are left at their zero values.
func (l *Loader) ForExtract() (c ExtractConfig) {
	sec, err := l.cfg.GetSection("extract")
	if err != nil {
		return c
	}

	c.Dir = sec.Key("dir").String()
	c.Concurrency = sec.Key("concurrency").MustInt(0)
	c.NoOverwrite = sec.Key("no-overwrite").MustBool(false)
	c.SkipChecksum = sec.Key("skip-checksum").MustBool(false)

	return
}

// ForExtract calls Loader.ForExtract on the DefaultLoader instance.
func ForExtract() ExtractConfig {
	return DefaultLoader.ForExtract()
}
