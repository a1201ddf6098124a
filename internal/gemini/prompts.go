package gemini

// DefaultSystemInstruction is used when the configuration does not supply
// one. Persona and formatting rules live in the per-intent prompt; this only
// pins down the shop-wide ground rules.
const DefaultSystemInstruction = `You are the assistant of an online coffee shop. Answer only from the context you are given and say so when it does not contain the answer. Never invent product IDs or prices. Keep answers short and friendly, and reply in the customer's language.`

// Embedding task types understood by the Gemini embedding models.
const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)
