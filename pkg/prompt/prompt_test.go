package prompt

import (
	"strings"
	"testing"
)

func TestScreening_IncludesRepoFields(t *testing.T) {
	p := Screening(RepoInfo{FullName: "acme/widget", Description: "a widget", Language: "Go"})
	for _, want := range []string{"acme/widget", "a widget", "Go", "solves_real_problem", "has_commercial_potential"} {
		if !strings.Contains(p, want) {
			t.Errorf("screening prompt missing %q", want)
		}
	}
}

func TestCoreIdea_ListsAllCriteria(t *testing.T) {
	p := CoreIdea(RepoInfo{FullName: "acme/widget"})
	for _, want := range []string{"is_painkiller", "is_novel", "has_viral_potential", "is_simple_and_elegant"} {
		if !strings.Contains(p, want) {
			t.Errorf("core idea prompt missing %q", want)
		}
	}
}

func TestEvaluation_TruncatesLongReadme(t *testing.T) {
	readme := strings.Repeat("x", maxReadmeChars+500)
	p := Evaluation("acme/widget", readme)
	if strings.Contains(p, strings.Repeat("x", maxReadmeChars+1)) {
		t.Error("readme was not truncated")
	}
	if !strings.Contains(p, strings.Repeat("x", maxReadmeChars)) {
		t.Error("truncation cut below the limit")
	}
}

func TestMarket_SearchVariants(t *testing.T) {
	info := RepoInfo{FullName: "acme/widget", Summary: "solid product"}
	withSearch := Market(info, true)
	if !strings.Contains(withSearch, "Search for and weigh") {
		t.Error("search variant missing search instructions")
	}
	plain := Market(info, false)
	if strings.Contains(plain, "Search for and weigh") {
		t.Error("plain variant must not instruct searching")
	}
	for _, p := range []string{withSearch, plain} {
		if !strings.Contains(p, "solid product") {
			t.Error("market prompt missing evaluation summary")
		}
	}
}
