// Package exercise holds the guided mindfulness exercises and the countdown
// timer that drives them.
package exercise

import "time"

// Phase is one repeating step of an exercise, such as "inhale".
type Phase struct {
	Name        string `json:"name"`
	Seconds     int    `json:"seconds"`
	Instruction string `json:"instruction"`
}

// Exercise is a guided routine. Phases repeat until Duration has elapsed.
type Exercise struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Seconds     int     `json:"seconds"`
	Phases      []Phase `json:"phases"`
}

// Duration is the total length of the exercise.
func (e Exercise) Duration() time.Duration {
	return time.Duration(e.Seconds) * time.Second
}

func (e Exercise) cycle() time.Duration {
	var d time.Duration
	for _, p := range e.Phases {
		d += time.Duration(p.Seconds) * time.Second
	}
	return d
}

// PhaseAt returns the phase active at elapsed and the time left in it.
// ok is false once the exercise is over or it has no phases.
func (e Exercise) PhaseAt(elapsed time.Duration) (phase Phase, left time.Duration, ok bool) {
	cycle := e.cycle()
	if cycle <= 0 || elapsed < 0 || elapsed >= e.Duration() {
		return Phase{}, 0, false
	}
	pos := elapsed % cycle
	for _, p := range e.Phases {
		d := time.Duration(p.Seconds) * time.Second
		if pos < d {
			left = d - pos
			if rest := e.Duration() - elapsed; rest < left {
				left = rest
			}
			return p, left, true
		}
		pos -= d
	}
	return Phase{}, 0, false
}

// Catalog lists the available exercises.
var Catalog = []Exercise{
	{
		ID:          "box_breathing",
		Name:        "Box Breathing",
		Category:    "breathing",
		Description: "Even four-count breathing to settle the nervous system.",
		Seconds:     240,
		Phases: []Phase{
			{Name: "inhale", Seconds: 4, Instruction: "Breathe in through your nose"},
			{Name: "hold", Seconds: 4, Instruction: "Hold"},
			{Name: "exhale", Seconds: 4, Instruction: "Breathe out slowly"},
			{Name: "hold", Seconds: 4, Instruction: "Hold"},
		},
	},
	{
		ID:          "breathing_478",
		Name:        "4-7-8 Breathing",
		Category:    "breathing",
		Description: "Long exhales to wind down before sleep.",
		Seconds:     190,
		Phases: []Phase{
			{Name: "inhale", Seconds: 4, Instruction: "Inhale quietly through your nose"},
			{Name: "hold", Seconds: 7, Instruction: "Hold your breath"},
			{Name: "exhale", Seconds: 8, Instruction: "Exhale completely through your mouth"},
		},
	},
	{
		ID:          "body_scan",
		Name:        "Body Scan",
		Category:    "mindfulness",
		Description: "Move attention through the body and release tension.",
		Seconds:     300,
		Phases: []Phase{
			{Name: "feet", Seconds: 60, Instruction: "Notice your feet and ankles"},
			{Name: "legs", Seconds: 60, Instruction: "Relax your calves and thighs"},
			{Name: "core", Seconds: 60, Instruction: "Soften your stomach and lower back"},
			{Name: "arms", Seconds: 60, Instruction: "Let your shoulders and hands go heavy"},
			{Name: "head", Seconds: 60, Instruction: "Unclench your jaw and forehead"},
		},
	},
	{
		ID:          "visualization",
		Name:        "Performance Visualization",
		Category:    "mental_skills",
		Description: "Rehearse a successful performance in detail.",
		Seconds:     240,
		Phases: []Phase{
			{Name: "settle", Seconds: 30, Instruction: "Close your eyes and breathe"},
			{Name: "rehearse", Seconds: 120, Instruction: "Walk through your performance step by step"},
			{Name: "success", Seconds: 60, Instruction: "Feel the moment you succeed"},
			{Name: "return", Seconds: 30, Instruction: "Open your eyes when ready"},
		},
	},
	{
		ID:          "precomp_reset",
		Name:        "Pre-Competition Reset",
		Category:    "mental_skills",
		Description: "A short routine to refocus right before competing.",
		Seconds:     120,
		Phases: []Phase{
			{Name: "breathe", Seconds: 30, Instruction: "Three slow, deep breaths"},
			{Name: "cue", Seconds: 30, Instruction: "Repeat your cue word"},
			{Name: "focus", Seconds: 60, Instruction: "Picture your first move"},
		},
	},
}

// Find returns the catalog exercise with id.
func Find(id string) (Exercise, bool) {
	for _, e := range Catalog {
		if e.ID == id {
			return e, true
		}
	}
	return Exercise{}, false
}
