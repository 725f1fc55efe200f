package modelhealth

// DefaultPrompts is the prompt bank used when Config.Prompts is empty.
// Every prompt asks for a short answer of several words.
var DefaultPrompts = []string{
	"Describe the color of the sky on a clear day in one sentence.",
	"Name three fruits that are usually red.",
	"In one sentence, what is the capital of France known for?",
	"Give a short sentence about why people drink water.",
	"List four animals that live on a farm.",
	"Say hello and introduce yourself in one short sentence.",
	"Complete this sentence: The quick brown fox jumps over",
	"In a few words, what is the opposite of hot?",
	"Write one short sentence about the ocean.",
	"What are the first five letters of the English alphabet?",
}
