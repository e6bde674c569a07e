package extract

import (
	"regexp"
	"sort"

	"github.com/sells-group/pricewatch/internal/htmldoc"
)

// maxNameDistance is the hop radius within which proximity to the product
// name earns a bonus. Beyond it, distance turns into a penalty.
const maxNameDistance = 7

// ScoreGroups groups raw candidates by exact decimal value and ranks the
// groups by composite trust score, descending. Ties keep first-encounter
// order. Returns nil for an empty candidate list.
//
// Structural and script-declared prices normally outrank arbitrary text,
// but a value sourced exclusively from one weak channel with no
// corroboration is itself suspicious and takes the full penalty. Proximity
// of a text candidate to the product name is strong corroborating
// evidence for a true displayed price.
func ScoreGroups(doc *htmldoc.Document, candidates []PriceInfo, productName string) []PriceGroup {
	if len(candidates) == 0 {
		return nil
	}

	distances := nameDistances(doc, candidates, productName)

	// Group by exact decimal value, preserving encounter order.
	index := make(map[string]int)
	var groups []PriceGroup
	for _, c := range candidates {
		key := c.Price.Amount.String()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, PriceGroup{Amount: c.Price.Amount})
		}
		groups[i].Candidates = append(groups[i].Candidates, c)
	}

	for i := range groups {
		groups[i].Score = scoreGroup(groups[i], distances)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Score > groups[b].Score
	})
	return groups
}

func scoreGroup(g PriceGroup, distances map[int]int) int {
	total := len(g.Candidates)
	attrCount, jsCount, textCount := 0, 0, 0
	hasSymbol := false
	minDist := -1
	for _, c := range g.Candidates {
		switch c.Source {
		case SourceAttribute:
			attrCount++
		case SourceScript:
			jsCount++
		case SourceText:
			textCount++
			if d, ok := distances[c.NodeID]; ok && (minDist < 0 || d < minDist) {
				minDist = d
			}
		}
		if c.Price.CurrencySymbol != "" {
			hasSymbol = true
		}
	}

	score := total

	if attrCount > 0 || jsCount > 0 {
		if attrCount != total {
			score += attrCount * 2
		} else {
			score -= attrCount + 20
		}
		if jsCount != total {
			score += jsCount * 3
		} else {
			score -= jsCount + 20
		}
	} else {
		score -= 5
	}

	if textCount > 0 {
		d := minDist
		if d < 0 {
			d = maxNameDistance + 1
		}
		switch {
		case d > 0 && d <= maxNameDistance:
			score += 10 - (d - 1)
		case d > maxNameDistance:
			score -= (d / maxNameDistance) * 10
		}
	} else {
		score -= 5
	}

	if hasSymbol {
		score += 15
	}
	return score
}

// nameDistances computes, per text-sourced candidate node, the minimum
// hop distance to any text node matching the product name as a whole
// word, case-insensitively. Nodes with no name occurrence anywhere in the
// tree are absent from the map.
//
// Hop distance approximates document-stream proximity; it is a known
// accuracy compromise but cheap on an indexed tree.
func nameDistances(doc *htmldoc.Document, candidates []PriceInfo, productName string) map[int]int {
	out := make(map[int]int)
	if productName == "" {
		return out
	}
	pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(productName) + `\b`)
	if err != nil {
		return out
	}

	var nameNodes []int
	for _, tn := range doc.TextNodes() {
		if pattern.MatchString(Normalize(tn.Raw())) {
			nameNodes = append(nameNodes, tn.ID)
		}
	}
	if len(nameNodes) == 0 {
		return out
	}

	for _, c := range candidates {
		if c.Source != SourceText || c.NodeID < 0 {
			continue
		}
		if _, done := out[c.NodeID]; done {
			continue
		}
		best := -1
		for _, nn := range nameNodes {
			if d := doc.Distance(c.NodeID, nn); d >= 0 && (best < 0 || d < best) {
				best = d
			}
		}
		if best >= 0 {
			out[c.NodeID] = best
		}
	}
	return out
}
