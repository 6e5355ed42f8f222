// Package prompt builds the judgment prompts for each pipeline stage.
// Every prompt demands a strict JSON object so the invoker can extract
// and validate the result.
package prompt

import (
	"fmt"
	"strings"
)

// maxReadmeChars bounds the README excerpt sent to the evaluation
// oracle; anything longer burns tokens without changing the verdict.
const maxReadmeChars = 12000

// RepoInfo carries the candidate fields the prompts interpolate.
type RepoInfo struct {
	FullName    string
	Description string
	Language    string
	Stars       int

	// Summary is the evaluation-stage summary, used by the market
	// prompt for context.
	Summary string
}

// Screening builds the fast first-gate prompt: is this a real problem
// with a commercial path, or noise?
func Screening(info RepoInfo) string {
	var b strings.Builder
	b.WriteString(`**Task: a fast, strict first-pass assessment of a new GitHub project**

**Role**: you are a seasoned, sharp-eyed early-stage investment analyst. Your time is precious: decide within sixty seconds whether this project deserves any further attention.

**Assessment frame** — answer the two questions below strictly and in order. If either answer is "false", the assessment fails as a whole.

1. **Does it solve a real and significant problem (solves_real_problem)?**
   - First, filter junk: obvious tests or templates ('test', 'hello-world', 'portfolio'), empty descriptions, and spam solve nothing. Answer false.
   - Then judge the problem itself: does the need it addresses genuinely exist, and does it matter enough to some group?
   - Judge the problem on its merits alone, not on taste.
   - true: the problem is real and significant.
   - false: a non-problem, too niche to matter, personal notes or tutorials, or junk.

2. **Does it have commercial potential (has_commercial_potential)?**
   - Think through the monetization path: even for open source, is there a clear, logical route (SaaS, a pro tier, paid API, marketplace cut, enterprise service)?
   - true: one or more viable business models exist.
   - false: inherently non-commercial (personal blogs, tutorials, pure art, most CLI tools) or the audience will not pay.

`)
	fmt.Fprintf(&b, "**Input**:\n- Project: %s\n- Description: %s\n- Primary language: %s\n\n",
		info.FullName, info.Description, info.Language)
	b.WriteString(`**Output (a strict JSON object, nothing else)**:
{
  "solves_real_problem": <true_or_false>,
  "has_commercial_potential": <true_or_false>,
  "is_promising": <true_or_false>,
  "reason": "<one sentence: which check failed, or the signal of potential if promising>"
}`)
	return b.String()
}

// CoreIdea builds the second-gate prompt scoring the idea's intrinsic
// qualities on four independent booleans.
func CoreIdea(info RepoInfo) string {
	var b strings.Builder
	b.WriteString(`**Task: assess the intrinsic quality of a core idea**

**Role**: you are a deeply insightful product thinker and early-stage investor who sees through the surface to the essence of an idea.

`)
	fmt.Fprintf(&b, "**Input**:\n- Project: %s\n- Description: %s\n\n", info.FullName, info.Description)
	b.WriteString(`**Dimensions (give an independent true/false for each)**:
1. **Real pain (is_painkiller)**: does it address a genuine, intense, frequent pain point, as opposed to a nice-to-have vitamin?
2. **Genuine novelty (is_novel)**: is the idea or approach highly original — something unheard of, or a non-consensus direction that might be right?
3. **Viral potential (has_viral_potential)**: does using it, or what it produces, inherently invite sharing? Would users show it off unprompted?
4. **Simple and elegant (is_simple_and_elegant)**: could the execution be strikingly simple and pleasant, the kind that makes users say "it can be this easy?"

**Output (a strict JSON object, nothing else)**:
{
  "is_painkiller": <true_or_false>,
  "is_novel": <true_or_false>,
  "has_viral_potential": <true_or_false>,
  "is_simple_and_elegant": <true_or_false>,
  "summary_reason": "<one sentence summarizing your core judgment>"
}`)
	return b.String()
}

// Evaluation builds the deep product-community-distribution prompt over
// the project's README.
func Evaluation(fullName, readme string) string {
	if len(readme) > maxReadmeChars {
		readme = readme[:maxReadmeChars]
	}

	var b strings.Builder
	b.WriteString(`**Task: a deep product / community / distribution evaluation of a project idea**

**Role**: you are a hybrid of a top product manager and a growth hacker — acute user insight, a ruthless eye for differentiation, and a deep feel for viral distribution. Judge whether this idea can ignite in the real world.

**Premise**: great products start by precisely serving an overlooked need, catch fire inside a specific community through a unique edge, and spread from there.

`)
	fmt.Fprintf(&b, "**Input**:\n- Project: %s\n- Description / README:\n---\n%s\n---\n\n", fullName, readme)
	b.WriteString(`**Framework (analyze each dimension and score it 1-10)**:
1. **User need insight (user_need_insight)**: does the idea precisely capture a widespread, or hidden but real, user need? Is it removing a genuine everyday friction?
2. **Differentiated advantage (differentiated_advantage)**: does it hold any unique, hard-to-copy edge? Consider: one-step simplicity, striking design or creativity, filling a gap mainstream competitors leave open, opening a new usage scenario for an old product class, or built-in story and marketing potential.
3. **Viral potential (viral_potential)**: will the target audience spread it? Does it fit the needs and idiom of a specific community, and is using or sharing the result fun, impressive, or provocative enough to be shared unprompted?

**Output (a strict JSON object, nothing else)**:
{
  "user_need_insight": {"score": <float>, "analysis": "<analysis>"},
  "differentiated_advantage": {"score": <float>, "analysis": "<analysis>"},
  "viral_potential": {"score": <float>, "analysis": "<analysis>"},
  "overall_assessment": {
    "final_score": <float, weighted average of the three scores>,
    "recommendation": "<DIAMOND | HIDDEN GEM | SOLID BET | LOTTERY TICKET | REJECT>",
    "summary": "<the decisive final judgment and why>"
  }
}`)
	return b.String()
}

// Market builds the market-analysis prompt for the final expensive
// gate. withSearch adjusts the instructions for a search-augmented
// oracle.
func Market(info RepoInfo, withSearch bool) string {
	var b strings.Builder
	if withSearch {
		b.WriteString("**Task: a deep market analysis of a strong project, grounded in current search results**\n\n")
		b.WriteString("**Role**: you are a senior market research analyst and industry investor. Using fresh web search results, assess the real market opportunity of a project that has already cleared product and technology review.\n\n")
		b.WriteString(`**Search for and weigh**:
1. Current market trends in the project's technology area
2. Main competitors and how comparable products perform
3. Size and trajectory of the target user base
4. Investment activity and business-model developments in the sector
5. Technology and policy headwinds or tailwinds

`)
	} else {
		b.WriteString("**Task: a deep market analysis of a strong project**\n\n")
		b.WriteString("**Role**: you are a senior market research analyst and industry investor. Drawing on your domain knowledge, assess the real market opportunity of a project that has already cleared product and technology review.\n\n")
	}
	b.WriteString("**Premise**: even a great product fails against the wrong market timing or competitive field.\n\n")
	fmt.Fprintf(&b, "**Project**:\n- Name: %s\n- Description: %s\n- Tech stack: %s\n- Stars: %d\n- Product evaluation summary: %s\n\n",
		info.FullName, info.Description, info.Language, info.Stars, info.Summary)
	b.WriteString(`**Framework (analyze and score each dimension 1-10)**:
1. **Market timing (market_timing)**: is now the right moment for this field? Do user readiness and technology maturity line up?
2. **Competitive landscape (competitive_landscape)**: how strong are incumbents? Is the space locked up by giants, or are there open flanks? How high are the barriers for a new entrant?
3. **Addressable market (market_size)**: how large and how solvent is the potential user base? Can it expand from a niche to the mainstream?
4. **Business model viability (business_model)**: is the monetization path clear? Is acquisition cost versus lifetime value healthy? Are there network effects or economies of scale?
5. **Industry trends (industry_trends)**: does it ride current technology and social currents? Do the next three to five years favor it, or threaten it with regulation or platform shifts?

**Output (a strict JSON object, nothing else)**:
{
  "market_timing": {"score": <float>, "analysis": "<analysis>"},
  "competitive_landscape": {"score": <float>, "analysis": "<analysis>"},
  "market_size": {"score": <float>, "analysis": "<analysis>"},
  "business_model": {"score": <float>, "analysis": "<analysis>"},
  "industry_trends": {"score": <float>, "analysis": "<analysis>"},
  "overall_market_assessment": {
    "final_score": <float, average of the five scores>,
    "market_recommendation": "<GO | PROCEED | HOLD | PASS>",
    "key_risks": ["<risk>", "<risk>", "<risk>"],
    "key_opportunities": ["<opportunity>", "<opportunity>", "<opportunity>"],
    "summary": "<the final market verdict and why>"
  }
}`)
	return b.String()
}
