package planner

import (
	"penplot/plotter"
)

// Build turns a contour list into a motion plan starting from start. For
// each contour with at least two points the plan lifts the pen, travels
// to the first point, lowers the pen, draws through the remaining points
// and lifts again. The plan ends with a pen-up move back to the origin.
// Shorter contours are skipped entirely.
func Build(start plotter.Point, contours []plotter.Contour) plotter.MotionPlan {
	plan := make(plotter.MotionPlan, 0, estimate(contours))
	cursor := start

	for i, contour := range contours {
		if len(contour) < 2 {
			continue
		}

		plan = append(plan, plotter.PlanStep{Action: plotter.ActionLift, Pen: plotter.PenUp, Contour: i})
		plan = append(plan, moveStep(cursor, contour[0], plotter.PenUp, i))
		cursor = contour[0]

		plan = append(plan, plotter.PlanStep{Action: plotter.ActionLower, Pen: plotter.PenDown, Contour: i})
		for _, p := range contour[1:] {
			plan = append(plan, moveStep(cursor, p, plotter.PenDown, i))
			cursor = p
		}

		plan = append(plan, plotter.PlanStep{Action: plotter.ActionLift, Pen: plotter.PenUp, Contour: i})
	}

	plan = append(plan, moveStep(cursor, plotter.Origin, plotter.PenUp, -1))
	return plan
}

func moveStep(from, to plotter.Point, pen plotter.PenState, contour int) plotter.PlanStep {
	return plotter.PlanStep{
		Action:  plotter.ActionMove,
		Move:    plotter.MoveBetween(from, to),
		Target:  to,
		Pen:     pen,
		Contour: contour,
	}
}

func estimate(contours []plotter.Contour) int {
	n := 1
	for _, c := range contours {
		if len(c) >= 2 {
			n += len(c) + 3
		}
	}
	return n
}

// Stats summarizes a plan for logging and dry runs
type Stats struct {
	Contours int
	Skipped  int
	Moves    int
	Lifts    int
	Lowers   int
	StepsX   uint64
	StepsY   uint64
}

// Summarize counts what a plan built from contours will do
func Summarize(contours []plotter.Contour, plan plotter.MotionPlan) Stats {
	var s Stats
	for _, c := range contours {
		if len(c) < 2 {
			s.Skipped++
		} else {
			s.Contours++
		}
	}
	for _, step := range plan {
		switch step.Action {
		case plotter.ActionMove:
			if !step.Move.IsZero() {
				s.Moves++
			}
		case plotter.ActionLift:
			s.Lifts++
		case plotter.ActionLower:
			s.Lowers++
		}
	}
	s.StepsX, s.StepsY = plan.Totals()
	return s
}
