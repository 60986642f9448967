package http

import (
	"encoding/json"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func (s *Server) formatAmount(v float64) string {
	return core.FormatAmount(v, s.symbol, s.locale)
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": s.formatAmount,
		"amount": func(a core.Amount) string {
			return s.formatAmount(a.Float())
		},
		"percent": func(v float64) string {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return "0%"
			}
			return strings.TrimSuffix(strings.TrimRight(strconv.FormatFloat(v, 'f', 1, 64), "0"), ".") + "%"
		},
		// width scales v against max into a 0-100 bar width.
		"width": func(v, max float64) float64 {
			if max <= 0 || v <= 0 {
				return 0
			}
			return math.Min(100, math.Round(v/max*1000)/10)
		},
		"monthName": func(m int) string {
			if m < 1 || m > 12 {
				return "All months"
			}
			return time.Month(m).String()
		},
		"seq": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i + 1
			}
			return out
		},
	}
}
