package config

import (
	"sort"
	"strings"
)

type Cors struct {
	origins AllowedOrigins
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	sort.Strings(origins)
	return strings.Join(origins, ", ")
}

// The player script is embedded on creators' own sites, so the default is any origin.
func newCors(get func(string, string) string) Cors {
	origins := AllowedOrigins{}
	for _, o := range splitList(get("ALLOWED_ORIGINS", "*")) {
		origins[strings.TrimRight(o, "/")] = nullValue{}
	}
	return Cors{origins: origins}
}

func (c Cors) GetAllowedOrigins() AllowedOrigins {
	return c.origins
}

func (Cors) GetAllowedMethods() string {
	return "GET, OPTIONS"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
