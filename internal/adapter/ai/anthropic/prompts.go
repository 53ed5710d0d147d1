package anthropic

import (
	"fmt"
	"strings"

	"github.com/kerjaflow/fitscore/internal/domain"
	"github.com/kerjaflow/fitscore/internal/scoring"
)

const extractSystemPrompt = `You are a strict technical recruiter evaluating how well a candidate's resume fits a job description. You never invent experience the resume does not contain. You respond with JSON only.`

// flagGuidance describes when each catalog flag applies. The engine owns the
// weights; the model only decides which conditions hold.
var flagGuidance = map[scoring.Flag]string{
	scoring.FlagCriticalSkillMissing:  "a must-have skill from the job description is absent from the resume (emit once per missing critical skill)",
	scoring.FlagSecondarySkillMissing: "a nice-to-have skill is absent (emit once per missing secondary skill)",
	scoring.FlagExperienceTooLow:      "total relevant experience is below the stated minimum by up to 3 years",
	scoring.FlagDomainMismatch:        "the candidate's industry or product domain differs from the job's",
	scoring.FlagGenericContent:        "the resume reads as generic or untailored, with no specifics tying it to this kind of role",
	scoring.FlagJobHopper:             "three or more positions shorter than 18 months in the last 5 years",
	scoring.FlagSeniorityMismatch:     "the candidate's level is clearly above or below the role's level",
	scoring.FlagPerfectStackMatch:     "every technology named as the core stack appears in the resume with real usage",
	scoring.FlagMetricsHeavy:          "the resume quantifies impact with concrete numbers across multiple roles",
	scoring.FlagEliteCompanyMatch:     "the candidate has worked at a company the job description names as a peer or competitor, or a widely recognized leader in the job's domain",
	scoring.FlagTransitionEase:        "gaps that exist are small and learnable quickly given the adjacent experience shown",
	scoring.FlagExactRoleMatch:        "the candidate currently holds or has recently held the exact role title being hired for",
}

// buildExtractPrompt assembles the user prompt for one resume/job pair.
func buildExtractPrompt(resumeText, jobDescription string) string {
	var sb strings.Builder
	sb.WriteString("Evaluate the resume below against the job description.\n\n")
	sb.WriteString("First decide hard_requirements_passed. It is false when ANY of these holds:\n")
	sb.WriteString("- more than half of the must-have skills are absent from the resume\n")
	sb.WriteString("- the experience gap is more than 3 years below the stated minimum\n")
	sb.WriteString("- a mandatory eligibility requirement (work authorization, location, clearance, certification) is unmet\n")
	sb.WriteString("Otherwise it is true.\n\n")
	sb.WriteString("When hard_requirements_passed is false, list every failed requirement in failed_criteria and leave flags empty.\n\n")
	sb.WriteString("When it is true, emit zero or more flags from this closed list. A flag may repeat when its condition holds more than once. Never emit a flag not on the list.\n")
	for _, f := range scoring.CatalogFlags() {
		fmt.Fprintf(&sb, "- %s: %s\n", f, flagGuidance[f])
	}
	sb.WriteString("\nAlso extract the position title and company name (use \"Unknown\" when absent), ")
	sb.WriteString("list the skills missing from the resume, and for each gap give a severity (CRITICAL or MINOR) and a concrete fix strategy the candidate could apply to their resume or within a few weeks of effort. ")
	sb.WriteString("Finish with two or three sentences of verdict reasoning.\n\n")
	sb.WriteString("JOB DESCRIPTION:\n")
	sb.WriteString(jobDescription)
	sb.WriteString("\n\nRESUME:\n")
	sb.WriteString(resumeText)
	return sb.String()
}

const documentSystemPrompt = `You are an expert resume writer. You rework the candidate's real experience to target a specific job. You never fabricate employers, titles, dates, or accomplishments.`

func buildDocumentPrompt(docType, resumeText string, listing domain.JobListing) string {
	var sb strings.Builder
	switch docType {
	case domain.DocumentTypeCoverLetter:
		sb.WriteString("Write a concise one-page cover letter (three to four paragraphs) for the job below, drawing only on experience present in the resume. Plain text, no placeholders.\n\n")
	default:
		sb.WriteString("Rewrite the resume below tailored to the job: reorder and rephrase to foreground the most relevant experience, mirror the job's terminology where the resume supports it, and cut content irrelevant to this role. Keep every employer, title, and date exactly as given. Plain text.\n\n")
	}
	fmt.Fprintf(&sb, "JOB: %s at %s\n", listing.Position, listing.Company)
	if listing.Location != "" {
		fmt.Fprintf(&sb, "LOCATION: %s\n", listing.Location)
	}
	sb.WriteString("\nJOB DESCRIPTION:\n")
	sb.WriteString(listing.Description)
	sb.WriteString("\n\nRESUME:\n")
	sb.WriteString(resumeText)
	return sb.String()
}
