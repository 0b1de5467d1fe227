package roundup

// monthlyPrompt args: start date, end date, month name, source documents,
// upper-cased topic, month name.
const monthlyPrompt = `You are helping an expert analyst prepare a monthly roundup for their newsletter.

**Use the Minto Pyramid Principle: structure the roundup to lead with the main conclusions and storylines, then organize supporting information hierarchically.**

Generate a monthly roundup from the following weekly briefs. Use only these briefs as your source. Do not invent content.

Date range: %s to %s
Month: %s

Weekly briefs:
%s

Format the roundup as follows:
1. Title: "# %s Monthly Roundup — %s"
2. Date range subtitle
3. "## Introduction" - 1-2 paragraphs summarizing the month's key storylines.
4. "## Suggested Titles" - 3-5 possible newsletter titles
5. Sections by theme (Papers and Prototypes, Clinical and Regulatory, Companies and Funding, Emerging Themes). Each section: summary statement then items with title, source/date, link, summary.

Keep content comprehensive but polished. Respond with the roundup markdown only.`

// annualPrompt args: year, source documents, upper-cased topic, year.
const annualPrompt = `You are helping an expert analyst prepare an annual review for their newsletter.

**Use the Minto Pyramid Principle: structure the review to lead with the main conclusions and storylines of the year, then organize supporting information hierarchically.**

Generate an annual review for the year %d. Use only the following monthly roundups as your source. Do not invent content.

Monthly roundups (in chronological order):
%s

Format the review as follows:
1. Title: e.g. "# %s Annual Review — %d" and a date range subtitle
2. "## Introduction" — 2–4 paragraphs with the year's main conclusions and storylines.
3. "## Timelines" — Chronological narrative or month-by-month highlights.
4. "## Trends" — Thematic arcs across the year. Use subheadings if helpful.
5. Optional: "## Suggested Titles" — 3–5 possible newsletter titles.

Keep content comprehensive but polished. Use only information from the roundups above. Respond with the review markdown only.`
