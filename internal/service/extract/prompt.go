package extract

// extractionPrompt constrains the completion to the StructuredIssue JSON
// shape. Field names must match the payload struct's json tags exactly; the
// decoder rejects anything else.
const extractionPrompt = `You are given the full transcript of a finished technical-support conversation between a USER and an AGENT. Extract the information collected during the conversation into a single JSON object with exactly this structure and no other fields:

{
  "device_details": {"brand": "", "model": "", "device_type": "", "os_version": ""} or null,
  "purchase_info": {"purchase_date": "", "warranty_status": "", "purchase_location": ""} or null,
  "problem_description": {"symptoms": "", "error_messages": "", "frequency": "", "trigger": "", "troubleshooting_attempts": ""} or null,
  "category_details": {"category": "", "subcategory": ""} or null,
  "summary": ""
}

Rules:
- Fill a field only with information explicitly present in the transcript; omit keys or use null for anything not mentioned.
- category_details names the service category the issue belongs to (for example "Appliance Repair" with subcategory "Refrigerator"); set it only when the transcript makes the category clear.
- summary is mandatory: a short free-text description of the issue as confirmed by the user.
- Reply with the JSON object only, no prose, no code fences.`
