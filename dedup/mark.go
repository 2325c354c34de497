package dedup

import "github.com/jobseekerhq/harvest/models"

// Mark sets DuplicateOf on every successful result whose description is
// within threshold Hamming distance of an earlier successful result in
// the slice. Earlier results win; a marked duplicate never becomes the
// anchor for later ones, so syndication chains all point at the first
// copy. Failed results are left untouched.
func Mark(results []models.ScrapeResult, threshold int) {
	type anchor struct {
		fp  uint64
		url string
	}
	var anchors []anchor

	for i := range results {
		r := &results[i]
		if !r.Success || r.Description == "" {
			continue
		}

		fp := Fingerprint(r.Description)
		marked := false
		for _, a := range anchors {
			if Similar(fp, a.fp, threshold) {
				r.DuplicateOf = a.url
				marked = true
				break
			}
		}
		if !marked {
			anchors = append(anchors, anchor{fp: fp, url: r.URL})
		}
	}
}
