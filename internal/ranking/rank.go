// Package ranking scores stored resumes against a job context summary. It is
// the local fallback when no external ranking signal is available.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jonathan/applypilot/internal/dom"
	"github.com/jonathan/applypilot/internal/types"
)

// stopwords are ignored when tokenizing job context and resume text.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "you": true,
	"our": true, "are": true, "will": true, "this": true, "that": true,
	"have": true, "your": true, "from": true, "not": true, "all": true,
}

// RankResumes scores every resume against the job context and returns them
// sorted by descending score. With an empty job context every resume scores
// zero and the original order is preserved, so the caller's first-resume
// fallback still applies.
func RankResumes(jobContext string, resumes []types.Resume) []types.ResumeScore {
	jobTokens := tokenize(jobContext)

	scores := make([]types.ResumeScore, 0, len(resumes))
	for _, resume := range resumes {
		overlap, matched := overlapScore(jobTokens, tokenize(resume.Content))
		scores = append(scores, types.ResumeScore{
			ResumeID: resume.ID,
			Score:    overlap,
			Notes:    notes(overlap, matched),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}

// tokenize normalizes text into a set of significant tokens.
func tokenize(text string) map[string]bool {
	tokens := map[string]bool{}
	for _, tok := range strings.Fields(dom.Normalize(text)) {
		if len(tok) < 3 || stopwords[tok] {
			continue
		}
		tokens[tok] = true
	}
	return tokens
}

// overlapScore computes the share of job tokens covered by the resume.
func overlapScore(job, resume map[string]bool) (float64, int) {
	if len(job) == 0 || len(resume) == 0 {
		return 0, 0
	}
	matched := 0
	for tok := range job {
		if resume[tok] {
			matched++
		}
	}
	score := float64(matched) / math.Max(float64(len(job)), 1)
	if score > 1.0 {
		score = 1.0
	}
	return score, matched
}

// notes produces a brief explanation of the score.
func notes(score float64, matched int) string {
	switch {
	case matched == 0:
		return "No keyword overlap with the job context"
	case score >= 0.5:
		return fmt.Sprintf("Strong keyword overlap (%d terms)", matched)
	case score >= 0.2:
		return fmt.Sprintf("Moderate keyword overlap (%d terms)", matched)
	default:
		return fmt.Sprintf("Weak keyword overlap (%d terms)", matched)
	}
}
