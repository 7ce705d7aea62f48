package extraction

// Prompt asks the model for a strict JSON object describing an ID document.
const Prompt = `Analyze this ID document image and extract the following information in JSON format.

Extract these fields if present:
1. fullName - Full name of the person
2. idNumber - ID number, passport number, or identification number
3. dateOfBirth - Date of birth in YYYY-MM-DD format
4. gender - Gender (Male/Female/Other)
5. address - Full residential address

IMPORTANT INSTRUCTIONS:
- Return ONLY valid JSON with no additional text, no markdown formatting, no code blocks
- Use null for missing fields
- Format dates as YYYY-MM-DD
- If gender is not specified, use null
- Include a confidence score from 0.0 to 1.0 for the overall extraction

JSON structure:
{
  "fullName": "string or null",
  "idNumber": "string or null",
  "dateOfBirth": "string or null",
  "gender": "string or null",
  "address": "string or null",
  "confidence": number
}`
