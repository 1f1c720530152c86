package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"flacroncv-backend-go/internal/models"
)

var resumeSummarySystem = map[string]string{
	"en": `You are a professional resume writer with expertise in creating compelling and effective resume summaries.
Your task is to generate or enhance the resume summary using a confident, first-person tone.
Use phrases like "I'm", "I have", "My expertise includes", and "I specialize in".
Make the summary professional, concise (3-5 sentences), and impactful.
Focus on highlighting the person's key achievements, strengths, and relevant experience.
Please write the summary in English.
Respond ONLY in English.`,
	"fr": `Vous êtes un rédacteur de CV professionnel, expert dans la création de résumés percutants et efficaces.
Votre tâche est de générer ou d'améliorer le résumé en utilisant un ton assuré à la première personne.
Utilisez des phrases comme "Je suis", "J'ai", "Mon expertise comprend" et "Je suis spécialisé dans".
Rendez le résumé professionnel, concis (3 à 5 phrases) et percutant.
Mettez en avant les principales réussites, forces et expériences pertinentes de la personne.
Merci de rédiger le résumé STRICTEMENT en français.
Ne répondez QU'EN FRANÇAIS.`,
}

var coverLetterSystem = map[string]string{
	"en": `You are an expert professional cover letter writer who creates compelling, well-structured cover letters.

IMPORTANT FORMATTING REQUIREMENTS:
- Write in clear, well-structured paragraphs
- Use proper professional language and tone
- Create 3-4 substantive paragraphs:
  1. Opening paragraph: Express interest and mention the position
  2. Body paragraph(s): Highlight relevant experience, skills, and achievements
  3. Closing paragraph: Express enthusiasm and next steps
- Use specific examples and quantifiable achievements when possible
- Maintain a confident, professional, and engaging tone
- Ensure proper flow between paragraphs
- End with a strong call to action

Write the entire cover letter content in English with proper paragraph breaks.
Do NOT include salutation, signature, or addresses - only the main body content.
Respond ONLY in English.`,
	"fr": `Vous êtes un expert en rédaction de lettres de motivation professionnelles qui crée des lettres convaincantes et bien structurées.

EXIGENCES DE FORMATAGE IMPORTANTES:
- Rédigez en paragraphes clairs et bien structurés
- Utilisez un langage et un ton professionnels appropriés
- Créez 3-4 paragraphes substantiels:
  1. Paragraphe d'ouverture: Exprimez votre intérêt et mentionnez le poste
  2. Paragraphe(s) du corps: Mettez en avant l'expérience, les compétences et les réalisations pertinentes
  3. Paragraphe de conclusion: Exprimez votre enthousiasme et les prochaines étapes
- Utilisez des exemples spécifiques et des réalisations quantifiables si possible
- Maintenez un ton confiant, professionnel et engageant
- Assurez-vous d'un bon flux entre les paragraphes
- Terminez par un appel à l'action fort

Rédigez tout le contenu de la lettre de motivation en français avec des sauts de paragraphe appropriés.
N'INCLUEZ PAS la salutation, la signature ou les adresses - seulement le contenu principal du corps.
Ne répondez QU'EN FRANÇAIS.`,
}

var feedbackSystem = map[string]string{
	"en": "Always respond in English. Ignore all previous language instructions.",
	"fr": "Donne toujours la réponse en français. Ignore toutes les instructions précédentes sur la langue.",
}

// tr picks the French or English variant.
func tr(lang, en, fr string) string {
	if lang == "fr" {
		return fr
	}
	return en
}

func pick(table map[string]string, lang string) string {
	if s, ok := table[lang]; ok {
		return s
	}
	return table["en"]
}

func str(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func obj(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

func list(m map[string]interface{}, key string) []map[string]interface{} {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if entry, ok := item.(map[string]interface{}); ok {
			out = append(out, entry)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// writeResumeSections renders the profile sections shared by both resume prompts.
func writeResumeSections(b *strings.Builder, data map[string]interface{}, lang string) {
	b.WriteString(tr(lang, "About Me:\n", "À propos de moi:\n"))
	if info := obj(data, "personalInfo"); info != nil {
		if name := str(info, "name"); name != "" {
			fmt.Fprintf(b, "Name: %s\n", name)
		}
		if loc := str(info, "location"); loc != "" {
			fmt.Fprintf(b, "Location: %s\n", loc)
		}
	}

	if edu := list(data, "education"); len(edu) > 0 {
		b.WriteString(tr(lang, "\nEducation:\n", "\nÉducation:\n"))
		for _, e := range edu {
			degree, inst := str(e, "degree"), str(e, "institution")
			if degree == "" && inst == "" {
				continue
			}
			fmt.Fprintf(b, "- %s from %s (%s)\n", degree, inst, orDefault(str(e, "date"), "No date"))
			if d := str(e, "description"); d != "" {
				fmt.Fprintf(b, "  %s\n", d)
			}
		}
	}

	if exp := list(data, "experience"); len(exp) > 0 {
		b.WriteString(tr(lang, "\nWork Experience:\n", "\nExpérience professionnelle:\n"))
		for _, e := range exp {
			pos, company := str(e, "position"), str(e, "company")
			if pos == "" && company == "" {
				continue
			}
			fmt.Fprintf(b, "- %s at %s (%s)\n", pos, company, orDefault(str(e, "date"), "No date"))
			if d := str(e, "description"); d != "" {
				fmt.Fprintf(b, "  %s\n", d)
			}
		}
	}

	if skills := list(data, "skills"); len(skills) > 0 {
		b.WriteString(tr(lang, "\nSkills:\n", "\nCompétences:\n"))
		for _, s := range skills {
			category, items := str(s, "category"), str(s, "skills")
			if category == "" && items == "" {
				continue
			}
			fmt.Fprintf(b, "- %s: %s\n", orDefault(category, tr(lang, "Skills", "Compétences")), items)
		}
	}

	if projects := list(data, "projects"); len(projects) > 0 {
		b.WriteString(tr(lang, "\nProjects:\n", "\nProjets:\n"))
		for _, p := range projects {
			if name := str(p, "name"); name != "" {
				fmt.Fprintf(b, "- %s: %s\n", name, str(p, "description"))
			}
		}
	}

	if certs := list(data, "certifications"); len(certs) > 0 {
		b.WriteString("\nCertifications:\n")
		for _, c := range certs {
			if name := str(c, "name"); name != "" {
				fmt.Fprintf(b, "- %s (%s)\n", name, orDefault(str(c, "date"), "No date"))
			}
		}
	}
}

// resumePrompt asks for a rewritten or new summary. summaryOnly selects the
// wording used by the summary endpoint.
func resumePrompt(data map[string]interface{}, lang string, summaryOnly bool) string {
	var b strings.Builder
	if summaryOnly {
		b.WriteString(tr(lang,
			"Please generate a professional first-person summary for the following resume information.\n\n",
			"Veuillez générer un résumé professionnel à la première personne pour les informations de CV suivantes.\n\n"))
	} else {
		b.WriteString(tr(lang,
			"Please enhance the following resume using a first-person, confident tone.\n\n",
			"Veuillez améliorer le CV suivant en utilisant un ton assuré à la première personne.\n\n"))
	}
	writeResumeSections(&b, data, lang)

	summary := str(data, "summary")
	switch {
	case summary != "" && summaryOnly:
		fmt.Fprintf(&b, tr(lang,
			"\nCurrent Summary:\n%s\n\nPlease rewrite the summary in a professional first-person tone.",
			"\nRésumé actuel:\n%s\n\nVeuillez réécrire le résumé en un ton professionnel à la première personne."), summary)
	case summary != "":
		fmt.Fprintf(&b, tr(lang,
			"\nCurrent Summary:\n%s\n\nPlease rewrite the summary to be more professional, using confident first-person language.",
			"\nRésumé actuel:\n%s\n\nVeuillez réécrire le résumé pour qu'il soit plus professionnel, en utilisant un langage assuré à la première personne."), summary)
	case summaryOnly:
		b.WriteString(tr(lang,
			"\nPlease generate a professional first-person summary (3-5 sentences).",
			"\nVeuillez générer un résumé professionnel à la première personne (3 à 5 phrases)."))
	default:
		b.WriteString(tr(lang,
			"\nPlease generate a new summary based on the information above, using a confident first-person tone (3-5 sentences).",
			"\nVeuillez générer un nouveau résumé basé sur les informations ci-dessus, en utilisant un ton assuré à la première personne (3 à 5 phrases)."))
	}
	return b.String()
}

func coverLetterPrompt(data map[string]interface{}, lang string) string {
	var b strings.Builder
	b.WriteString(tr(lang,
		"Create a professional and compelling cover letter with the following information:\n\n",
		"Créez une lettre de motivation professionnelle et convaincante avec les informations suivantes:\n\n"))

	if job := obj(data, "jobInfo"); job != nil {
		b.WriteString(tr(lang, "JOB INFORMATION:\n", "INFORMATIONS SUR LE POSTE:\n"))
		if v := str(job, "title"); v != "" {
			fmt.Fprintf(&b, "Position: %s\n", v)
		}
		if v := str(job, "reference"); v != "" {
			fmt.Fprintf(&b, "Reference: %s\n", v)
		}
	}
	if rec := obj(data, "recipientInfo"); rec != nil {
		b.WriteString(tr(lang, "\nRECIPIENT INFORMATION:\n", "\nINFORMATIONS SUR LE DESTINATAIRE:\n"))
		if v := str(rec, "name"); v != "" {
			fmt.Fprintf(&b, "Hiring Manager: %s\n", v)
		}
		if v := str(rec, "title"); v != "" {
			fmt.Fprintf(&b, "Title: %s\n", v)
		}
		if v := str(rec, "company"); v != "" {
			fmt.Fprintf(&b, "Company: %s\n", v)
		}
	}
	if info := obj(data, "personalInfo"); info != nil {
		b.WriteString(tr(lang, "\nAPPLICANT INFORMATION:\n", "\nINFORMATIONS SUR LE CANDIDAT:\n"))
		if v := str(info, "name"); v != "" {
			fmt.Fprintf(&b, "Name: %s\n", v)
		}
	}
	if v := str(data, "experience"); v != "" {
		fmt.Fprintf(&b, tr(lang, "\nRELEVANT EXPERIENCE:\n%s\n", "\nEXPÉRIENCE PERTINENTE:\n%s\n"), v)
	}
	if v := str(data, "skills"); v != "" {
		fmt.Fprintf(&b, tr(lang, "\nKEY SKILLS:\n%s\n", "\nCOMPÉTENCES CLÉS:\n%s\n"), v)
	}
	if v := str(data, "motivation"); v != "" {
		fmt.Fprintf(&b, tr(lang, "\nMOTIVATION/INTEREST:\n%s\n", "\nMOTIVATION/INTÉRÊT:\n%s\n"), v)
	}

	b.WriteString(tr(lang, `
Create a well-structured cover letter with:
1. An opening paragraph that expresses interest in the position
2. Body paragraphs that highlight relevant experience and skills
3. A closing paragraph that expresses enthusiasm and suggests next steps

Use a professional and confident tone. Include specific examples where possible.`, `
Créez une lettre de motivation bien structurée avec:
1. Un paragraphe d'ouverture qui exprime l'intérêt pour le poste
2. Des paragraphes de développement qui mettent en avant l'expérience et les compétences pertinentes
3. Un paragraphe de conclusion qui exprime l'enthousiasme et propose les prochaines étapes

Utilisez un ton professionnel et confiant. Incluez des exemples spécifiques si possible.`))
	return b.String()
}

func feedbackPrompt(kind models.DocumentKind, data map[string]interface{}, lang string) (string, error) {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	if kind == models.KindCoverLetter {
		return tr(lang,
			"You are an expert cover letter reviewer. Give constructive feedback (in English) on this cover letter (JSON format below): strengths, weaknesses, and suggestions for improvement, in 5-10 sentences max. Use a professional, clear, and concise tone.\nCover Letter:\n",
			"Tu es un expert en rédaction de lettres de motivation. Donne un retour constructif en français sur cette lettre de motivation (format JSON ci-dessous) : points forts, faiblesses, et suggestions d'amélioration, en 5 à 10 phrases maximum. Utilise un ton professionnel, clair, et concis.\nLettre de motivation :\n",
		) + string(encoded), nil
	}
	return tr(lang,
		"You are an expert resume reviewer. Give constructive feedback (in English) on this resume (JSON format below): strengths, weaknesses, and suggestions for improvement, in 5-10 sentences max. Use a professional, clear, and concise tone.\nResume:\n",
		"Tu es un expert en rédaction de CV. Donne un retour constructif en français sur ce CV (format JSON ci-dessous) : points forts, faiblesses, et suggestions d'amélioration, en 5 à 10 phrases maximum. Utilise un ton professionnel, clair, et concis.\nCV :\n",
	) + string(encoded), nil
}
