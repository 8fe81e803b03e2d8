package catalog

import "testing"

func TestDefault_Loads(t *testing.T) {
	c := Default()
	if len(c.Flatten(KindSTT)) != 6 || len(c.Flatten(KindLLM)) != 4 || len(c.Flatten(KindTTS)) != 10 {
		t.Fatalf("unexpected sizes stt=%d llm=%d tts=%d",
			len(c.Flatten(KindSTT)), len(c.Flatten(KindLLM)), len(c.Flatten(KindTTS)))
	}
	if len(c.Providers[KindTTS]) != 2 {
		t.Fatalf("providers = %+v", c.Providers)
	}
}

func TestDefaults_ArePresentInCatalog(t *testing.T) {
	c := Default()
	for k, v := range map[Kind]string{KindSTT: c.Defaults.STT, KindLLM: c.Defaults.LLM, KindTTS: c.Defaults.TTS} {
		if _, ok := c.Lookup(k, v); !ok {
			t.Fatalf("default %s %q missing from catalog", k, v)
		}
	}
	if c.Defaults.Instructions == "" {
		t.Fatal("default instructions empty")
	}
}

func TestLookup(t *testing.T) {
	o, ok := Default().Lookup(KindTTS, "elevenlabs:21m00Tcm4TlvDq8ikWAM")
	if !ok || o.Label != "Rachel (Female)" {
		t.Fatalf("lookup = %+v %v", o, ok)
	}
	if _, ok := Default().Lookup(KindLLM, "openai/gpt-5"); ok {
		t.Fatal("unknown model found")
	}
	if Default().Flatten("video") != nil {
		t.Fatal("unknown kind should flatten to nil")
	}
}
