package compaction

// targetScore is the length-aware target liveness a run of length L must
// beat, laxer for longer runs since amortized I/O per reclaimed byte
// improves with run length.
func targetScore(length, maxRunLength int) float64 {
	if maxRunLength <= 1 || length <= 1 {
		return SFCT
	}
	return SFCT + (MRCT-SFCT)*float64(length-1)/float64(maxRunLength-1)
}

// ScoreRun scores a contiguous run under the given cap. score(∅) = 0.0.
func ScoreRun(run []Candidate, maxRunLength int) float64 {
	if len(run) == 0 {
		return 0.0
	}
	var sum float64
	for _, c := range run {
		sum += c.CompactionPerc
	}
	mean := sum / float64(len(run))
	return targetScore(len(run), maxRunLength) - mean
}

func cloneRun(run []Candidate) []Candidate {
	out := make([]Candidate, len(run))
	copy(out, run)
	return out
}

// scanFrom runs the single greedy forward pass described in the planner's
// design note starting at offset: the current window absorbs the next
// candidate only when doing so scores at least as well as abandoning the
// window for a fresh singleton at that candidate; hitting the cap forces
// the window closed (recorded if it is the best seen this pass) and a new
// window opens at the next candidate. The highest-scoring window closed
// during the pass is returned.
func scanFrom(candidates []Candidate, offset, maxRunLength int) []Candidate {
	var window, best []Candidate
	bestScore := 0.0

	closeWindow := func() {
		if s := ScoreRun(window, maxRunLength); s > bestScore {
			bestScore = s
			best = cloneRun(window)
		}
		window = nil
	}

	for _, c := range candidates[offset:] {
		switch {
		case len(window) == 0:
			window = []Candidate{c}
		case len(window) < maxRunLength && ScoreRun(append(cloneRun(window), c), maxRunLength) >= ScoreRun([]Candidate{c}, maxRunLength):
			window = append(window, c)
		default:
			closeWindow()
			window = []Candidate{c}
		}

		if len(window) == maxRunLength {
			closeWindow()
		}
	}
	closeWindow()

	return best
}

// Plan selects the best contiguous run of length ≤ maxRunLength from
// candidates, which must be in ascending low_sqn order. It scans with
// every starting offset 0..maxRunLength-1 and keeps the highest-scoring
// window across all passes, ties keeping the earlier (first-seen) run.
// This bounded back-tracking is the core's cost/quality knob and does
// not guarantee a globally optimal run.
func Plan(candidates []Candidate, maxRunLength int) []Candidate {
	return Explain(candidates, maxRunLength).Chosen
}

// PlanExplanation reports the chosen run alongside the runner-up windows
// considered during backtracking, for operational visibility into an
// otherwise invisible heuristic.
type PlanExplanation struct {
	Chosen      []Candidate
	ChosenScore float64
	RunnersUp   []RunAttempt
}

// RunAttempt is one offset pass's outcome.
type RunAttempt struct {
	Offset int
	Run    []Candidate
	Score  float64
}

// Explain runs the same passes as Plan but returns every pass's result
// instead of only the winner.
func Explain(candidates []Candidate, maxRunLength int) PlanExplanation {
	if maxRunLength < 1 || len(candidates) == 0 {
		return PlanExplanation{}
	}

	attempts := []RunAttempt{{
		Offset: 0,
		Run:    scanFrom(candidates, 0, maxRunLength),
	}}
	attempts[0].Score = ScoreRun(attempts[0].Run, maxRunLength)

	for offset := 1; offset < maxRunLength && offset < len(candidates); offset++ {
		run := scanFrom(candidates, offset, maxRunLength)
		attempts = append(attempts, RunAttempt{Offset: offset, Run: run, Score: ScoreRun(run, maxRunLength)})
	}

	chosen := attempts[0]
	for _, a := range attempts[1:] {
		if a.Score > chosen.Score {
			chosen = a
		}
	}

	return PlanExplanation{
		Chosen:      chosen.Run,
		ChosenScore: chosen.Score,
		RunnersUp:   attempts,
	}
}
