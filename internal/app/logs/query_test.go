package logs

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/cwrk-planet/voice-testbench/pkg/errs"
)

func TestParseTail(t *testing.T) {
	cases := map[string]int{
		"":                     200,
		"abc":                  200,
		"0":                    1,
		"-5":                   1,
		"1":                    1,
		"250":                  250,
		"500":                  500,
		"9999":                 500,
		"12abc":                12,
		" 30 ":                 30,
		"+7":                   7,
		"-":                    200,
		"x12":                  200,
		"99999999999999999999": 500,
	}
	for in, want := range cases {
		if got := ParseTail(in); got != want {
			t.Errorf("ParseTail(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestTargetValidate_RequestRegion(t *testing.T) {
	for _, r := range []string{"us-east-1", "eu-central-1", "us-gov-west-1", "ap-southeast-2"} {
		if err := ResolveTarget(url.Values{"region": {r}}, "", "", "").Validate(); err != nil {
			t.Errorf("region %q rejected: %v", r, err)
		}
	}
	for _, r := range []string{"x", "US-EAST-1", "us-east-1/../x", "us-east", strings.Repeat("a-", 40) + "1"} {
		err := ResolveTarget(url.Values{"region": {r}}, "", "", "").Validate()
		if !errors.Is(err, errs.ErrInvalidInput) {
			t.Errorf("region %q accepted", r)
		}
	}
	// регион из конфига не проверяется
	if err := ResolveTarget(url.Values{}, "local", "g", "").Validate(); err != nil {
		t.Fatalf("configured region must pass: %v", err)
	}
}

func TestParseSince(t *testing.T) {
	s := ParseSince("1700000000")
	if s.Millis() != 1700000000000 {
		t.Fatalf("seconds input: millis = %d", s.Millis())
	}
	if s.Seconds() != 1700000000 {
		t.Fatalf("seconds input: seconds = %d", s.Seconds())
	}

	ms := ParseSince("1700000000000")
	if ms.Millis() != 1700000000000 {
		t.Fatalf("millis input: millis = %d", ms.Millis())
	}
	if ms.Seconds() != 1700000000 {
		t.Fatalf("millis input: seconds = %d", ms.Seconds())
	}

	// ровно на пороге, уже миллисекунды
	if got := ParseSince("1000000000000").Millis(); got != 1000000000000 {
		t.Fatalf("threshold: %d", got)
	}
	if got := ParseSince("999999999999").Millis(); got != 999999999999000 {
		t.Fatalf("below threshold: %d", got)
	}

	for _, raw := range []string{"", "0", "-1", "soon"} {
		if ParseSince(raw).IsSet() {
			t.Fatalf("ParseSince(%q) should be unset", raw)
		}
	}
}

func TestValidateService(t *testing.T) {
	if svc, err := ValidateService("", CloudWatchServices); err != nil || svc != "livekit" {
		t.Fatalf("default: %q %v", svc, err)
	}
	if svc, err := ValidateService("AGENT", LocalServices); err != nil || svc != "agent" {
		t.Fatalf("case: %q %v", svc, err)
	}
	if _, err := ValidateService("caddy", LocalServices); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("caddy is cloudwatch-only, got %v", err)
	}
	for _, allowed := range [][]string{CloudWatchServices, LocalServices} {
		if _, err := ValidateService("bogus", allowed); !errors.Is(err, errs.ErrInvalidInput) {
			t.Fatalf("bogus accepted: %v", err)
		}
	}
}

func TestFilterPattern(t *testing.T) {
	if got := FilterPattern(`  room "abc" joined `); got != `"room abc joined"` {
		t.Fatalf("got %s", got)
	}
	if FilterPattern("   ") != "" {
		t.Fatal("blank filter must produce no pattern")
	}
}

func TestResolveTarget(t *testing.T) {
	v := url.Values{"logGroup": {"/req/group"}}
	tg := ResolveTarget(v, "us-east-1", "/cfg/group", "")

	if tg.LogGroup != (Setting{"/req/group", LayerRequest}) {
		t.Fatalf("logGroup = %+v", tg.LogGroup)
	}
	if tg.Region != (Setting{"us-east-1", LayerConfig}) {
		t.Fatalf("region = %+v", tg.Region)
	}
	if tg.StreamPrefix != (Setting{"livekit", LayerDefault}) {
		t.Fatalf("streamPrefix = %+v", tg.StreamPrefix)
	}
	if tg.StreamNamePrefix("agent") != "livekit/agent" || tg.StreamNamePrefix("all") != "" {
		t.Fatalf("stream prefix computed wrong")
	}
}

func TestTargetMissing(t *testing.T) {
	tg := ResolveTarget(url.Values{}, "", "", "")
	if got := tg.Missing(); !reflect.DeepEqual(got, []string{"region", "logGroup"}) {
		t.Fatalf("missing = %v", got)
	}
	tg = ResolveTarget(url.Values{"region": {"eu-west-1"}}, "", "", "")
	if got := tg.Missing(); !reflect.DeepEqual(got, []string{"logGroup"}) {
		t.Fatalf("missing = %v", got)
	}
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(url.Values{"service": {"SIP"}, "tail": {"0"}, "since": {"1700000000"}, "filter": {" err "}}, LocalServices)
	if err != nil {
		t.Fatal(err)
	}
	if q.Service != "sip" || q.Tail != 1 || q.Since.Seconds() != 1700000000 || q.Filter != "err" {
		t.Fatalf("query = %+v", q)
	}
}

func TestDiagnose_NoSecretValues(t *testing.T) {
	env := map[string]string{"AWS_ACCESS_KEY_ID": "AKIASECRET", "AWS_PROFILE": ""}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	q := Query{Service: "agent", Tail: 10, Filter: "x", Since: ParseSince("1700000000")}
	d := Diagnose(q, ResolveTarget(url.Values{}, "us-east-1", "", ""), lookup)

	if !d.Credentials["AWS_ACCESS_KEY_ID"] || d.Credentials["AWS_PROFILE"] || d.Credentials["AWS_SECRET_ACCESS_KEY"] {
		t.Fatalf("credentials = %v", d.Credentials)
	}
	if !reflect.DeepEqual(d.Missing, []string{"logGroup"}) {
		t.Fatalf("missing = %v", d.Missing)
	}
	if d.StreamNamePrefix != "livekit/agent" || d.FilterPattern != `"x"` || *d.SinceMillis != 1700000000000 {
		t.Fatalf("diag = %+v", d)
	}
}
