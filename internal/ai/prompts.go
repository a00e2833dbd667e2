package ai

import "atsengine/internal/types"

// DefaultSystemPrompts are the built-in system instructions, keyed by
// operation.
var DefaultSystemPrompts = struct {
	Critique string
	Rewrite  string
}{
	Critique: `You are an expert resume reviewer and a careful spelling and grammar checker.

You only report genuine mistakes. You never flag:
- proper nouns such as people, companies and products
- technical terms, programming languages and frameworks
- job titles and industry jargon
- compound words and abbreviations
- words that are spelled correctly but look unusual

Be conservative. When in doubt, do not report the word.`,

	Rewrite: `You are an expert ATS resume optimizer with a strict commitment to accuracy.

- Never invent employers, dates, degrees, skills or achievements.
- Every statement in the rewritten resume must be traceable to the original.
- Keep a professional tone and good readability.
- Avoid keyword stuffing and irrelevant content.`,
}

// DefaultUserPrompts are the built-in user prompt templates. Critique takes
// the resume text. Rewrite takes, in order, the feedback summary, the
// strategy guidance, the industry and the resume text.
var DefaultUserPrompts = struct {
	Critique string
	Rewrite  string
}{
	Critique: `Analyze the following resume text and identify ONLY actual spelling mistakes and grammar errors.

For each spelling error give the misspelled word, the correction and a short context.
For each grammar error give the problematic phrase, how to fix it and a short context.
Return empty arrays when there are no errors.

**Resume Text:**
%s`,

	Rewrite: `Improve the resume below so it performs well in Applicant Tracking Systems.

**ATS feedback to address:**
%s

**Strategy:**
%s

**Target industry:** %s

Guidelines:
- Output a plain text resume with clear section headings: Summary, Experience, Education, Skills, Certifications.
- Use standard section names and simple bullet points.
- Start bullet points with strong action verbs and quantify results where the original gives numbers.
- Do not include explanations, commentary or metadata.

**Original Resume:**
%s`,
}

// strategyGuidance explains each rewrite strategy to the model.
var strategyGuidance = map[types.Strategy]string{
	types.StrategyMinorFix:      "Minor edits only. Preserve the existing structure and style, fix errors and add missing keywords where they fit naturally.",
	types.StrategyMajorOverhaul: "Rewrite the resume using an ATS-friendly layout with standard headings and ensure full keyword and formatting optimization.",
	types.StrategyHybrid:        "Improve the structure and section ordering while keeping the candidate's voice and style.",
}
