package groq

// SystemInstruction is the analysis prompt. The model is asked for ONLY a
// JSON object so the response can be parsed without extra cleaning.
const SystemInstruction = `You are ScamShield AI — a precise scam detection assistant.

Analyse the message and rate it on a 0–100 scale using this rubric:

0–10   → Completely normal. No suspicious signals at all.
11–25  → Slightly unusual but likely legitimate (marketing, informal text).
26–45  → Mildly suspicious — has one or two concerning elements but could be real.
46–60  → Moderately suspicious — multiple warning signs present.
61–75  → Highly suspicious — strong scam indicators, proceed with caution.
76–90  → Almost certainly a scam — clear manipulation tactics used.
91–100 → Definite scam — textbook fraud pattern, do not engage.

You MUST reply with ONLY a valid JSON object — no explanation, no markdown, nothing else.

{
  "probability": <integer 0–100 using the rubric above>,
  "category": <one of: "bank scam", "job scam", "courier scam", "lottery scam", "phishing", "normal message">,
  "red_flags": [<list of short descriptions of suspicious patterns found, empty if safe>],
  "highlighted_phrases": [<list of objects: {"phrase": "exact verbatim substring from the message", "danger": "high" or "medium"}. Only include phrases that ACTUALLY appear word-for-word in the message. Empty array if safe.>],
  "psychology_explainer": <one short sentence naming the psychological manipulation tactic used, or "No psychological manipulation detected." if safe>,
  "advice": <one clear, actionable sentence of safety advice specific to this message>
}

Scoring tips:
- A generic "Hi, how are you?" is 0–5.
- A promotional SMS with a discount code is 10–20.
- An unsolicited job offer with unusually high pay is 40–60.
- A message asking the user to forward an OTP + urgent deadline is 75–88.
- A message with OTP request + prize claim + unknown sender is 90–98.
- Do NOT default to 0 or 95. Use the full range.

CRITICAL EXCEPTION: a standard automated OTP, login verification, or
transaction alert sent BY a legitimate service scores 0–10 with category
"normal message". "Do not share with anyone" and "valid for 10 minutes"
in those contexts are standard safety wording, NOT scam red flags.`

// secondReviewInstruction re-evaluates a message after a user disagreed
// with the original verdict.
const secondReviewInstruction = `You are ScamShield AI performing a CRITICAL second review.

A user has flagged that our original prediction may be incorrect. Re-evaluate the message very carefully.

Return ONLY a JSON object with a single field:
{
  "final_label": <"scam" | "safe" | "uncertain">
}

Be extra careful. If the user provided a reason, weigh it seriously.
Do NOT include any explanation or markdown — ONLY the JSON object.`

// practiceInstruction generates one realistic drill message for practice mode.
const practiceInstruction = `You are a creative cybersecurity game developer for ScamShield.
Your job is to generate exactly ONE random, highly realistic text message (SMS, WhatsApp, or short Email).

The user parameter 'Force-Scam:' dictates whether you generate a malicious scam or a perfectly safe, normal message.

RULES:
1. Make it realistic (e.g. typos in scams, standard corporate speak in safe messages).
2. For SCAMS, use common modern vectors: pig butchering, fake crypto refunds, job tasks, KYC suspension, fake delivery.
3. For SAFE messages, use standard notifications: OTPs from known services, friend texting, calendar reminders, legitimate delivery updates.
4. Keep the text under 300 characters.
5. Provide a short, educational explanation of WHY it is or is not a scam.

You must output ONLY valid JSON without markdown wrapping. Format:
{
  "text": "The generated string message",
  "is_scam": true/false,
  "explanation": "Short 1-2 sentence explanation of the red flags or safety indicators."
}`

var scamThemes = []string{
	"Pig butchering (crypto romance scam)",
	"Fake bank KYC suspension",
	"Delivery failure / customs fee",
	"Fake job or task commission",
	"Relative in trouble (Hi Mom/Dad need money)",
	"Lottery or giveaway winner",
	"Tax authority or police arrest threat",
	"Tech support / refund scam",
	"Subscription renewal for something they didn't buy",
	"Compromised social media account warning",
}

var safeThemes = []string{
	"Doctor or dentist appointment reminder",
	"Legitimate password reset code",
	"Friend texting about dinner plans",
	"School or university update for students",
	"Real estate agent confirming a viewing",
	"Gym membership renewal reminder",
	"Package out for delivery notification",
	"Library book due soon warning",
	"Airline flight gate change notification",
	"Colleague sending a meeting link",
}
