package logs

// Diagnostics: снимок для ?debug=1. Значения секретов сюда не попадают.
type Diagnostics struct {
	Credentials      map[string]bool `json:"credentials"`
	Resolved         Target          `json:"resolved"`
	Service          string          `json:"service"`
	Tail             int             `json:"tail"`
	SinceMillis      *int64          `json:"sinceMillis"`
	StreamNamePrefix string          `json:"streamNamePrefix,omitempty"`
	FilterPattern    string          `json:"filterPattern,omitempty"`
	Missing          []string        `json:"missing"`
}

var credentialEnv = []string{
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"AWS_SESSION_TOKEN",
	"AWS_PROFILE",
	"AWS_WEB_IDENTITY_TOKEN_FILE",
	"AWS_ROLE_ARN",
}

// Diagnose собирает снимок; lookup, обычно os.LookupEnv.
func Diagnose(q Query, t Target, lookup func(string) (string, bool)) Diagnostics {
	creds := make(map[string]bool, len(credentialEnv))
	for _, k := range credentialEnv {
		v, ok := lookup(k)
		creds[k] = ok && v != ""
	}

	d := Diagnostics{
		Credentials:      creds,
		Resolved:         t,
		Service:          q.Service,
		Tail:             q.Tail,
		StreamNamePrefix: t.StreamNamePrefix(q.Service),
		FilterPattern:    FilterPattern(q.Filter),
		Missing:          t.Missing(),
	}
	if d.Missing == nil {
		d.Missing = []string{}
	}
	if q.Since.IsSet() {
		ms := q.Since.Millis()
		d.SinceMillis = &ms
	}
	return d
}
