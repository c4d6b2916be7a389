package rareword

import "math"

// builtinScorer approximates a Zipf frequency scale (1 = very rare,
// 7 = extremely common) from a small ranked word list per language.
// The pack carries no wordfreq-equivalent Go library, so this stands in
// for one: rank i maps to a descending score, and a word absent from
// the table reports ok=false, the same "no data" outcome an out-of-
// vocabulary lookup gives a real frequency corpus. Callers that need
// corpus-accurate scores should supply their own FrequencyScorer.
type builtinScorer struct {
	base string
}

func (b builtinScorer) Zipf(word string) (float64, bool) {
	ranked, ok := commonWords[b.base]
	if !ok {
		return 0, false
	}
	rank, ok := ranked[word]
	if !ok {
		return 0, false
	}
	score := 7.0 - math.Log10(float64(rank+1))*1.5
	if score < 0.5 {
		score = 0.5
	}
	return score, true
}

// buildRankTable turns an ordered-by-frequency word list into a
// word->rank lookup (0 = most common).
func buildRankTable(words []string) map[string]int {
	m := make(map[string]int, len(words))
	for i, w := range words {
		if _, exists := m[w]; !exists {
			m[w] = i
		}
	}
	return m
}

// commonWords holds, per base language code, a few hundred words in
// roughly descending frequency order. It is a deliberately compact
// stand-in for a real frequency corpus, not an attempt at one.
var commonWords = map[string]map[string]int{
	"en": buildRankTable(englishCommonWords),
	"ru": buildRankTable(russianCommonWords),
	"es": buildRankTable(spanishCommonWords),
}

var englishCommonWords = []string{
	"the", "be", "to", "of", "and", "a", "in", "that", "have", "i",
	"it", "for", "not", "on", "with", "he", "as", "you", "do", "at",
	"this", "but", "his", "by", "from", "they", "we", "say", "her", "she",
	"or", "an", "will", "my", "one", "all", "would", "there", "their", "what",
	"so", "up", "out", "if", "about", "who", "get", "which", "go", "me",
	"when", "make", "can", "like", "time", "no", "just", "him", "know", "take",
	"people", "into", "year", "your", "good", "some", "could", "them", "see", "other",
	"than", "then", "now", "look", "only", "come", "its", "over", "think", "also",
	"back", "after", "use", "two", "how", "our", "work", "first", "well", "way",
	"even", "new", "want", "because", "any", "these", "give", "day", "most", "us",
	"thing", "world", "life", "hand", "part", "child", "eye", "woman", "place", "man",
	"week", "case", "point", "government", "company", "number", "group", "problem", "fact", "home",
	"water", "room", "mother", "area", "money", "story", "fact", "month", "lot", "right",
	"study", "book", "job", "word", "business", "issue", "side", "kind", "head", "house",
	"service", "friend", "father", "power", "hour", "game", "line", "end", "member", "law",
	"car", "city", "community", "name", "president", "team", "minute", "idea", "body", "information",
	"back", "parent", "face", "others", "level", "office", "door", "health", "person", "art",
	"war", "history", "party", "result", "change", "morning", "reason", "research", "girl", "guy",
	"moment", "air", "teacher", "force", "education", "foot", "boy", "age", "policy", "everything",
	"love", "process", "music", "market", "sense", "nation", "plan", "college", "interest", "death",
	"experience", "effect", "use", "class", "control", "care", "field", "development", "role", "effort",
	"rate", "heart", "drug", "show", "leader", "light", "voice", "wife", "whole", "police",
	"mind", "price", "report", "decision", "son", "hope", "television", "view", "staff", "model",
	"page", "district", "season", "success", "figure", "future", "series", "letter", "value", "wall",
	"firm", "cause", "table", "street", "type", "image", "state", "amount", "building", "action",
	"society", "order", "nature", "system", "theory", "standard", "union", "culture", "church", "officer",
	"difference", "student", "director", "quality", "chance", "relationship", "practice", "material", "program", "condition",
	"sort", "bed", "behavior", "news", "speech", "wind", "sea", "style", "gun", "animal",
	"major", "event", "industry", "blood", "skill", "bird", "tax", "truth", "organization", "scene",
	"policy", "bank", "pressure", "fear", "region", "tree", "century", "term", "stage", "context",
	"knowledge", "center", "paper", "review", "risk", "court", "capital", "band", "response", "population",
	"pattern", "relation", "environment", "population", "finding", "discovery", "mystery", "rumor", "whisper", "shadow",
	"labyrinth", "threshold", "lantern", "compass", "vessel", "ember", "abyss", "harbinger", "reverie", "solace",
	"tempest", "sanctuary", "aftermath", "silhouette", "vigil", "pilgrimage", "remnant", "oblivion", "cascade", "eclipse",
}

var russianCommonWords = []string{
	"и", "в", "не", "на", "я", "быть", "он", "с", "что", "а",
	"по", "это", "она", "этот", "к", "но", "они", "мы", "как", "из",
	"у", "который", "то", "за", "свой", "что", "весь", "год", "от", "так",
	"о", "для", "ты", "же", "все", "тот", "мочь", "вы", "человек", "такой",
	"его", "сказать", "только", "один", "еще", "время", "если", "уже", "или", "ни",
	"быть", "когда", "очень", "говорить", "без", "да", "наш", "день", "где", "рука",
	"жизнь", "при", "два", "дело", "стать", "хотеть", "знать", "какой", "здесь", "слово",
	"лицо", "работа", "дом", "себя", "новый", "идти", "место", "вода", "друг", "город",
	"глаз", "голова", "дверь", "сила", "стоять", "большой", "видеть", "земля", "ночь", "думать",
	"взгляд", "вопрос", "случай", "смотреть", "минута", "голос", "окно", "мысль", "система", "смысл",
	"лабиринт", "предвестие", "забвение", "пучина", "скитание", "сумрак", "пепел", "завеса", "бездна", "отголосок",
}

var spanishCommonWords = []string{
	"el", "la", "de", "que", "y", "a", "en", "un", "ser", "se",
	"no", "haber", "por", "con", "su", "para", "como", "estar", "tener", "le",
	"lo", "todo", "pero", "más", "hacer", "o", "poder", "decir", "este", "ir",
	"otro", "ese", "si", "yo", "ya", "ver", "porque", "dar", "cuando", "muy",
	"sin", "vez", "mucho", "saber", "qué", "mano", "hombre", "tiempo", "año", "día",
	"cosa", "vida", "mujer", "casa", "lugar", "mundo", "parte", "trabajo", "caso", "agua",
	"forma", "ojo", "momento", "punto", "amigo", "historia", "ciudad", "noche", "voz", "grupo",
	"problema", "palabra", "razón", "gobierno", "nivel", "nación", "pregunta", "persona", "madre", "padre",
	"cabeza", "puerta", "pared", "cielo", "sueño", "corazón", "sombra", "espejo", "silencio", "misterio",
	"laberinto", "abismo", "penumbra", "vestigio", "presagio", "olvido", "refugio", "umbral", "ceniza", "eco",
}
