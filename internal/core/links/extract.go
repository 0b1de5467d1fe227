package links

// ExtractURLs collects every URL cited in markdown across the four link
// shapes (markdown links, HTML anchors, autolinks, bare URLs), deduped by
// literal in first-seen order. Bare matches have trailing punctuation split
// off before collection.
func ExtractURLs(markdown string) []string {
	var urls []string

	for _, groups := range markdownLinkRe.FindAllStringSubmatch(markdown, -1) {
		urls = append(urls, groups[2])
	}

	for _, groups := range htmlAnchorRe.FindAllStringSubmatch(markdown, -1) {
		if groups[1] != "" {
			urls = append(urls, groups[1])
		} else {
			urls = append(urls, groups[2])
		}
	}

	for _, groups := range autolinkRe.FindAllStringSubmatch(markdown, -1) {
		urls = append(urls, groups[1])
	}

	for _, m := range bareURLRe.FindAllStringIndex(markdown, -1) {
		if m[0] > 0 && (markdown[m[0]-1] == '(' || markdown[m[0]-1] == '<') {
			continue
		}

		core, _ := SplitTrailingPunctuation(markdown[m[0]:m[1]])
		if core != "" {
			urls = append(urls, core)
		}
	}

	return DedupeURLs(urls)
}
