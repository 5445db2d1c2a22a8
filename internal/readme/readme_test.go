package readme

import (
	"strings"
	"testing"
)

const sample = "# Stripe\n\nConnect to Stripe.\n\n## Overview\n\nThe Stripe connector wraps the REST API.\n\n```ballerina\nimport ballerinax/stripe;\n## not a heading\n```\n\nMore text.\n\n## Setup guide\n\n1. Create an account.\n\n## Quickstart\n\nUse it.\n"

func TestExtract_Sections(t *testing.T) {
	got := Extract(sample)
	wantOverview := "## Overview\n\nThe Stripe connector wraps the REST API.\n\n\nMore text."
	if got.Overview != wantOverview {
		t.Errorf("overview = %q, want %q", got.Overview, wantOverview)
	}
	if got.Setup != "## Setup guide\n\n1. Create an account." {
		t.Errorf("setup = %q", got.Setup)
	}
}

func TestExtract_HeadingInsideCodeIsIgnored(t *testing.T) {
	got := Extract(sample)
	if strings.Contains(got.Overview, "not a heading") || strings.Contains(got.Overview, "import") {
		t.Errorf("code block leaked into overview: %q", got.Overview)
	}
}

func TestExtract_Prerequisites(t *testing.T) {
	got := Extract("## Prerequisites\n\n- A token\n\n~~~\nsecret\n~~~\n")
	if got.Setup != "## Prerequisites\n\n- A token" {
		t.Errorf("setup = %q", got.Setup)
	}
}

func TestExtract_IntroFallback(t *testing.T) {
	got := Extract("Intro line.\n\n```\ncode\n```\n\n## Usage\n\nStuff\n")
	if got.Overview != "Intro line." {
		t.Errorf("overview = %q, want intro", got.Overview)
	}
	if got.Setup != "" {
		t.Errorf("setup = %q, want empty", got.Setup)
	}
}

func TestExtract_NoHeadings(t *testing.T) {
	got := Extract("Just a paragraph.\n")
	if got.Overview != "" || got.Setup != "" {
		t.Errorf("got %+v, want empty sections", got)
	}
}

func TestExtract_Empty(t *testing.T) {
	if got := Extract("   "); got != (Sections{}) {
		t.Errorf("got %+v", got)
	}
}

func TestExtract_CaseInsensitiveTitles(t *testing.T) {
	got := Extract("## OVERVIEW\nA\n## SETUP\nB\n")
	if got.Overview != "## OVERVIEW\nA" || got.Setup != "## SETUP\nB" {
		t.Errorf("got %+v", got)
	}
}

func TestExtract_EmptyFenceIsRemoved(t *testing.T) {
	got := Extract("## Overview\n\nBefore.\n\n```\n```\n\nAfter.\n\n## Setup\n\n~~~\n~~~\nRun it.\n")
	if got.Overview != "## Overview\n\nBefore.\n\n\nAfter." {
		t.Errorf("overview = %q", got.Overview)
	}
	if got.Setup != "## Setup\n\nRun it." {
		t.Errorf("setup = %q", got.Setup)
	}
}

func TestExtract_EmptyFenceAfterCodeBlock(t *testing.T) {
	got := Extract("## Overview\n\n```go\nx := 1\n```\n```\n```\nText.\n")
	if got.Overview != "## Overview\n\nText." {
		t.Errorf("overview = %q", got.Overview)
	}
}
