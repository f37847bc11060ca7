package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"text/tabwriter"
)

type WinnerStat struct {
	Winner   string  `json:"winner"`
	Games    int64   `json:"games"`
	AvgTurns float64 `json:"avg_turns"`
}

type PolicyStat struct {
	Policy    string  `json:"policy"`
	Decisions int64   `json:"decisions"`
	AvgDepth  float64 `json:"avg_depth"`
	AvgNodes  float64 `json:"avg_nodes"`
}

type AgreementStat struct {
	Squad       string  `json:"squad"`
	Positions   int64   `json:"positions"`
	Agreed      int64   `json:"agreed"`
	AvgDepth    float64 `json:"avg_depth"`
	AvgNodes    float64 `json:"avg_nodes"`
	AvgElapsedU float64 `json:"avg_elapsed_us"`
}

func (a AgreementStat) Rate() float64 {
	if a.Positions == 0 {
		return 0
	}
	return float64(a.Agreed) / float64(a.Positions)
}

type Report struct {
	Winners   []WinnerStat    `json:"winners,omitempty"`
	Policies  []PolicyStat    `json:"policies,omitempty"`
	Agreement []AgreementStat `json:"agreement,omitempty"`
}

func queryWinners(ctx context.Context, db *sql.DB) ([]WinnerStat, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(winner, ''), 'draw') AS w, COUNT(*) AS games, AVG(turns) AS avg_turns
		FROM (
			SELECT game_id, any_value(winner) AS winner, MAX(turn) + 1 AS turns
			FROM arena
			GROUP BY game_id
		)
		GROUP BY w
		ORDER BY games DESC, w`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WinnerStat
	for rows.Next() {
		var s WinnerStat
		if err := rows.Scan(&s.Winner, &s.Games, &s.AvgTurns); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// queryPolicies averages search effort over every archived decision.
func queryPolicies(ctx context.Context, db *sql.DB) ([]PolicyStat, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT struct_extract(s, 'policy') AS policy,
			COUNT(*) AS decisions,
			AVG(struct_extract(s, 'depth')) AS avg_depth,
			AVG(struct_extract(s, 'nodes')) AS avg_nodes
		FROM (SELECT unnest(snakes) AS s FROM arena)
		WHERE struct_extract(s, 'alive') AND struct_extract(s, 'move') >= 0
		GROUP BY policy
		ORDER BY policy`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PolicyStat
	for rows.Next() {
		var s PolicyStat
		if err := rows.Scan(&s.Policy, &s.Decisions, &s.AvgDepth, &s.AvgNodes); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// queryAgreement skips positions whose played move could not be read.
func queryAgreement(ctx context.Context, db *sql.DB) ([]AgreementStat, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(squad, ''), '(none)') AS sq,
			COUNT(*) AS positions,
			COUNT(*) FILTER (WHERE agree) AS agreed,
			AVG(depth), AVG(nodes), AVG(elapsed_us)
		FROM replay
		WHERE played_move >= 0
		GROUP BY sq
		ORDER BY positions DESC, sq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AgreementStat
	for rows.Next() {
		var s AgreementStat
		if err := rows.Scan(&s.Squad, &s.Positions, &s.Agreed, &s.AvgDepth, &s.AvgNodes, &s.AvgElapsedU); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// buildReport runs the queries for every view that exists.
func buildReport(ctx context.Context, db *sql.DB, views []string) (Report, error) {
	var r Report
	var err error
	for _, v := range views {
		switch v {
		case "arena":
			if r.Winners, err = queryWinners(ctx, db); err != nil {
				return r, fmt.Errorf("winners: %w", err)
			}
			if r.Policies, err = queryPolicies(ctx, db); err != nil {
				return r, fmt.Errorf("policies: %w", err)
			}
		case "replay":
			if r.Agreement, err = queryAgreement(ctx, db); err != nil {
				return r, fmt.Errorf("agreement: %w", err)
			}
		}
	}
	return r, nil
}

func (r Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(r.Winners) > 0 {
		fmt.Fprintln(tw, "WINNER\tGAMES\tAVG TURNS")
		for _, s := range r.Winners {
			fmt.Fprintf(tw, "%s\t%d\t%.1f\n", s.Winner, s.Games, s.AvgTurns)
		}
		fmt.Fprintln(tw)
	}
	if len(r.Policies) > 0 {
		fmt.Fprintln(tw, "POLICY\tDECISIONS\tAVG DEPTH\tAVG NODES")
		for _, s := range r.Policies {
			fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.0f\n", s.Policy, s.Decisions, s.AvgDepth, s.AvgNodes)
		}
		fmt.Fprintln(tw)
	}
	if len(r.Agreement) > 0 {
		fmt.Fprintln(tw, "SQUAD\tPOSITIONS\tAGREE\tAVG DEPTH\tAVG NODES\tAVG US")
		for _, s := range r.Agreement {
			fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%.1f\t%.0f\t%.0f\n", s.Squad, s.Positions, 100*s.Rate(), s.AvgDepth, s.AvgNodes, s.AvgElapsedU)
		}
	}
	if len(r.Winners)+len(r.Policies)+len(r.Agreement) == 0 {
		fmt.Fprintln(tw, "no archives found")
	}
	return tw.Flush()
}
