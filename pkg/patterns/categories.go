package patterns

// =============================================================================
// PATTERN DEFINITIONS BY CATEGORY
// All patterns are registered here and compiled once at package init.
// This provides a single source of truth for all content risk patterns.
// Weights are per-category and feed the analyzer's score aggregation.
// =============================================================================

// --- PII EXPOSURE PATTERNS ---
func (r *Registry) registerPIIPatterns() {
	cat := CategoryPII
	r.describe(cat, 45, "Personally identifiable information detected")

	r.register("email_address", `\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`, cat)
	r.register("phone_number", `(\+?\d{1,3}[\s\-]?)?\(?\d{3}\)?[\s\-]?\d{3}[\s\-]?\d{4}\b`, cat)
	r.register("ssn", `\b\d{3}-\d{2}-\d{4}\b`, cat)
	r.register("credit_card", `\b(?:\d[ \-]*?){13,16}\b`, cat)
	r.register("aadhaar_number", `\b[2-9]\d{3}\s?\d{4}\s?\d{4}\b`, cat)
	r.register("pan_number", `\b[A-Z]{5}[0-9]{4}[A-Z]\b`, cat)
	r.register("ip_address", `\b(?:\d{1,3}\.){3}\d{1,3}\b`, cat)
	r.register("street_address", `\b\d{1,5}\s+\w+\s+(street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr)\b`, cat)
}

// --- BIAS AND STEREOTYPING PATTERNS ---
func (r *Registry) registerBiasPatterns() {
	cat := CategoryBias
	r.describe(cat, 30, "Potentially biased or stereotyping language")

	r.register("group_generalization", `\b(all|every|most)\s+(women|men|girls|boys|people\s+from|immigrants|foreigners)\b`, cat)
	r.register("group_verb_claim", `\b(women|men|asians|africans|europeans|americans|muslims|christians|jews|hindus)\s+(are|can't|cannot|always|never)\b`, cat)
	r.register("typical_group", `\btypical\s+(woman|man|girl|boy|foreigner|immigrant)\b`, cat)
	r.register("people_like_them", `\bpeople\s+like\s+(them|those|that)\b`, cat)
	r.register("belong_claim", `\b(they|those\s+people)\s+(don'?t|do\s+not)\s+belong\b`, cat)
}

// --- HALLUCINATION INDICATOR PATTERNS ---
func (r *Registry) registerHallucinationPatterns() {
	cat := CategoryHallucination
	r.describe(cat, 20, "Unverifiable or fabricated claims")

	r.register("vague_authority", `\b(studies\s+show|scientists\s+(say|agree|confirm)|experts\s+(say|agree|confirm)|research\s+proves)\b`, cat)
	r.register("common_knowledge", `\b(everyone\s+knows|it\s+is\s+(well\s+)?known|obviously\s+true|undeniable\s+fact)\b`, cat)
	r.register("absolute_certainty", `\b(definitely|certainly|absolutely)\s+(will|is|are)\s+\w+`, cat)
	r.register("fabricated_citation", `\baccording\s+to\s+(a|the)\s+(study|report|paper)\s+(by|from|in)\b`, cat)
	r.register("statistic_no_source", `\b\d{1,3}(\.\d+)?%\s+of\s+(people|users|cases|patients)\b`, cat)
}

// --- ADVERSARIAL / PROMPT MANIPULATION PATTERNS ---
func (r *Registry) registerAdversarialPatterns() {
	cat := CategoryAdversarial
	r.describe(cat, 60, "Prompt manipulation or instruction override attempt")

	r.register("ignore_instructions", `\bignore\s+(all\s+|any\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?|directives?)\b`, cat)
	r.register("disregard_instructions", `\b(disregard|forget|bypass|override)\s+(the\s+|all\s+|your\s+)?(instructions?|rules?|guidelines?|restrictions?|safety)\b`, cat)
	r.register("system_prompt_probe", `\b(system\s+prompt|initial\s+prompt|hidden\s+instructions?)\b`, cat)
	r.register("roleplay_override", `\b(pretend|act\s+as\s+if|imagine)\s+(you\s+(are|have)|there\s+(are|is))\s+no\s+(rules?|restrictions?|limits?|filters?)\b`, cat)
	r.register("jailbreak_persona", `\b(jailbreak|dan\s+mode|developer\s+mode|unrestricted\s+mode)\b`, cat)
	r.register("do_anything_now", `\byou\s+can\s+do\s+anything\s+now\b`, cat)
	r.register("reveal_prompt", `\b(reveal|show|print|repeat)\s+(your|the)\s+(system\s+)?(prompt|instructions?)\b`, cat)
}

// --- TOXICITY PATTERNS ---
func (r *Registry) registerToxicityPatterns() {
	cat := CategoryToxicity
	r.describe(cat, 50, "Toxic, threatening, or abusive language")

	r.register("direct_threat", `\b(i('ll|\s+will)\s+)?(kill|hurt|destroy|attack)\s+(you|them|him|her)\b`, cat)
	r.register("group_hate", `\bi\s+hate\s+(you|them|those|all)\b`, cat)
	r.register("self_harm_urging", `\b(you\s+should|go)\s+(kill|hurt)\s+yourself\b`, cat)
	r.register("degrading_insult", `\byou('re|\s+are)\s+(a\s+)?(stupid|worthless|pathetic|disgusting|idiot)\b`, cat)
	r.register("dehumanizing", `\b(subhuman|vermin|parasites?)\b`, cat)
	r.register("violent_wish", `\b(deserve[s]?\s+to\s+(die|suffer)|wish\s+(you|they)\s+were\s+dead)\b`, cat)
}

// --- MISINFORMATION PATTERNS ---
func (r *Registry) registerMisinformationPatterns() {
	cat := CategoryMisinformation
	r.describe(cat, 45, "Known misinformation or pseudo-scientific claim")

	r.register("vaccine_autism", `\bvaccines?\s+cause[s]?\s+autism\b`, cat)
	r.register("flat_earth", `\b(earth\s+is\s+flat|flat\s+earth)\b`, cat)
	r.register("miracle_cure", `\b(miracle|secret|guaranteed)\s+(cure|remedy|treatment)\b`, cat)
	r.register("cure_suppressed", `\b(cure\s+for\s+cancer\s+(is\s+)?(hidden|suppressed)|big\s+pharma\s+(hides|is\s+hiding))\b`, cat)
	r.register("5g_conspiracy", `\b5g\s+(causes?|spreads?|created)\b`, cat)
	r.register("climate_hoax", `\b(climate\s+change|global\s+warming)\s+is\s+(a\s+)?(hoax|fake|myth|scam)\b`, cat)
	r.register("election_rigged_claim", `\belection\s+was\s+(stolen|rigged)\b`, cat)
}
