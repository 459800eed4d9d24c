package config

import "strings"

// orDefault returns fallback for the zero value of T.
func orDefault[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

func normalizeDatabaseConfig(cfg DatabaseRuntimeConfig) DatabaseRuntimeConfig {
	trimAll(&cfg.DSN, &cfg.Host, &cfg.User, &cfg.Password, &cfg.Name, &cfg.Charset, &cfg.Loc)
	cfg.Host = orDefault(cfg.Host, defaultDBHost)
	cfg.Port = orDefault(cfg.Port, defaultDBPort)
	cfg.User = orDefault(cfg.User, defaultDBUser)
	cfg.Name = orDefault(cfg.Name, defaultDBName)
	cfg.Charset = orDefault(cfg.Charset, defaultDBCharset)
	cfg.Loc = orDefault(cfg.Loc, defaultDBLoc)
	cfg.Params = copyStringMap(cfg.Params)
	return cfg
}

func normalizeRedisConfig(cfg RedisRuntimeConfig) RedisRuntimeConfig {
	cfg.URL = normalizeRedisRawURL(cfg.URL)
	trimAll(&cfg.Host, &cfg.Username, &cfg.Password)
	cfg.Host = orDefault(cfg.Host, defaultRedisHost)
	cfg.Port = orDefault(cfg.Port, defaultRedisPort)
	if cfg.DB < 0 {
		cfg.DB = defaultRedisDB
	}
	cfg.Scheme = strings.ToLower(strings.TrimSpace(cfg.Scheme))
	if cfg.Scheme == "" && cfg.TLS {
		cfg.Scheme = "rediss"
	}
	cfg.Scheme = orDefault(cfg.Scheme, "redis")
	cfg.Params = copyStringMap(cfg.Params)
	return cfg
}

// normalizeRedisRawURL accepts "host:port" shorthand for a redis URL.
func normalizeRedisRawURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "redis://") || strings.HasPrefix(raw, "rediss://") {
		return raw
	}
	return "redis://" + raw
}

func normalizeStorageConfig(cfg StorageRuntimeConfig) StorageRuntimeConfig {
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	cfg.Region = orDefault(cfg.Region, defaultS3Region)
	return cfg
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

func normalizeHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	return orDefault(strings.ToLower(strings.TrimSpace(env)), defaultEnv)
}

func normalizeRuntimePaths(paths RuntimePathsConfig) RuntimePathsConfig {
	trimAll(&paths.Logs, &paths.Static, &paths.Backups)
	return paths
}

// copyStringMap drops entries whose key or value is blank. A nil map
// stays nil.
func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
