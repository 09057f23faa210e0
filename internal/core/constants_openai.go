package core

// OpenAI object type constants
const (
	ModelObjectType     = "model"
	ModelOwner          = "openai"
	ModelListObjectType = "list"
)

// Upstream host constants
const (
	OpenAIHost     = "api.openai.com"
	OpenRouterHost = "openrouter.ai"
	DefaultBaseURL = "https://api.openai.com/v1"
)

// Upstream endpoint paths
const (
	ModelsPath          = "/models"
	ChatCompletionsPath = "/chat/completions"
)

// ExcludedOpenAIModelFragments lists id substrings hidden from the canonical OpenAI backend.
var ExcludedOpenAIModelFragments = []string{
	"babbage",
	"dall-e",
	"davinci",
	"embedding",
	"tts",
	"whisper",
}

// Payload field names rewritten by the gateway
const (
	FieldModel               = "model"
	FieldMessages            = "messages"
	FieldMetadata            = "metadata"
	FieldTemperature         = "temperature"
	FieldMaxTokens           = "max_tokens"
	FieldMaxCompletionTokens = "max_completion_tokens"
	FieldUser                = "user"
	FieldRole                = "role"
	FieldContent             = "content"
	FieldPipeline            = "pipeline"
)

// O1ModelPrefix marks models that reject system prompts and custom temperatures.
const O1ModelPrefix = "o1-"
