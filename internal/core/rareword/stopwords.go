package rareword

// stopwordSet returns the stopword set for a base language code,
// defaulting to an empty set for unlisted languages.
func stopwordSet(base string) map[string]bool {
	list, ok := stopwordLists[base]
	if !ok {
		return map[string]bool{}
	}
	return list
}

var stopwordLists = map[string]map[string]bool{
	"en": toSet([]string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
		"of", "with", "by", "from", "as", "is", "was", "are", "were", "been",
		"be", "have", "has", "had", "do", "does", "did", "will", "would",
		"could", "should", "may", "might", "must", "shall", "can", "not",
		"this", "that", "these", "those", "it", "its", "he", "she", "they",
		"we", "you", "i", "me", "my", "your", "his", "her", "their", "our",
		"what", "which", "who", "whom", "where", "when", "why", "how",
		"all", "each", "every", "both", "few", "more", "most", "other",
		"some", "such", "no", "nor", "only", "own", "same", "so",
		"than", "then", "now", "here", "there", "just", "also", "too", "very",
		"if", "else", "while", "because", "although", "though", "unless",
		"until", "before", "after", "above", "below", "between", "into",
		"through", "during", "over", "under", "again", "further", "once",
		"about", "out", "up", "down", "off",
	}),
	"ru": toSet([]string{
		"и", "в", "не", "на", "я", "быть", "он", "с", "что", "а",
		"по", "это", "она", "этот", "к", "но", "они", "мы", "как", "из",
		"у", "который", "то", "за", "свой", "весь", "от", "так", "о",
		"для", "ты", "же", "все", "тот", "мочь", "вы", "такой", "его",
		"только", "один", "еще", "если", "уже", "или", "ни", "когда",
		"очень", "без", "да", "наш", "где", "при", "два", "себя", "до",
	}),
	"es": toSet([]string{
		"el", "la", "de", "que", "y", "a", "en", "un", "ser", "se",
		"no", "haber", "por", "con", "su", "para", "como", "estar", "tener", "le",
		"lo", "todo", "pero", "más", "hacer", "o", "poder", "decir", "este", "ir",
		"otro", "ese", "si", "yo", "ya", "ver", "porque", "dar", "cuando", "muy",
		"sin", "mucho", "saber", "qué", "los", "las", "unos", "unas", "del", "al",
	}),
}

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
