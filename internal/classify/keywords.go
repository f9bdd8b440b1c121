package classify

import "github.com/xiaot623/newsstream/internal/domain"

// rule pairs a category with its ordered keyword list.
type rule struct {
	category domain.Category
	keywords []string
}

// defaultRules is scored in declaration order; earlier rules win ties.
var defaultRules = []rule{
	{domain.CategoryPolitics, []string{
		"government", "minister", "parliament", "election", "political", "party", "congress", "bjp",
		"vote", "democracy", "policy", "law", "constitution", "supreme court", "high court",
		"prime minister", "president", "governor", "chief minister", "cabinet", "opposition",
		"rally", "campaign", "manifesto", "coalition", "alliance",
	}},
	{domain.CategoryBusiness, []string{
		"business", "economy", "market", "stock", "shares", "profit", "loss", "revenue", "company",
		"corporate", "startup", "investment", "bank", "finance", "rupee", "dollar", "trading",
		"nifty", "sensex", "ipo", "merger", "acquisition", "earnings", "quarterly", "sales",
		"ceo", "cfo", "board", "dividend", "inflation", "gdp", "fiscal", "budget",
	}},
	{domain.CategoryTechnology, []string{
		"technology", "tech", "ai", "artificial intelligence", "machine learning", "software",
		"app", "mobile", "smartphone", "computer", "internet", "digital", "cyber", "data",
		"cloud", "blockchain", "cryptocurrency", "bitcoin", "startup", "innovation",
		"google", "apple", "microsoft", "facebook", "meta", "twitter", "instagram",
		"programming", "coding", "developer", "algorithm", "automation",
	}},
	{domain.CategorySports, []string{
		"cricket", "football", "hockey", "tennis", "badminton", "kabaddi", "wrestling",
		"boxing", "athletics", "olympics", "world cup", "ipl", "tournament", "match",
		"player", "team", "coach", "victory", "defeat", "score", "goal", "run",
		"wicket", "stadium", "championship", "league", "fifa", "icc", "bcci",
	}},
	{domain.CategoryEntertainment, []string{
		"bollywood", "hollywood", "movie", "film", "actor", "actress", "director", "producer",
		"music", "song", "album", "concert", "show", "celebrity", "star", "cinema",
		"box office", "release", "trailer", "awards", "oscar", "filmfare", "television",
		"tv", "serial", "web series", "netflix", "amazon prime", "ott",
	}},
	{domain.CategoryHealth, []string{
		"health", "medical", "doctor", "hospital", "medicine", "treatment", "disease",
		"covid", "corona", "virus", "vaccine", "vaccination", "pandemic", "symptoms",
		"patient", "healthcare", "wellness", "fitness", "diet", "nutrition",
		"surgery", "therapy", "mental health", "depression", "anxiety",
	}},
	{domain.CategoryScience, []string{
		"science", "research", "study", "scientist", "discovery", "experiment", "space",
		"nasa", "isro", "satellite", "rocket", "mars", "moon", "planet", "climate",
		"environment", "pollution", "global warming", "renewable energy", "solar",
		"nuclear", "physics", "chemistry", "biology", "genetics", "dna",
	}},
	{domain.CategoryEducation, []string{
		"education", "school", "college", "university", "student", "teacher", "exam",
		"result", "admission", "degree", "course", "curriculum", "academic",
		"scholarship", "fee", "education policy", "neet", "jee", "upsc", "cbse",
		"icse", "board", "class", "grade", "learning", "skill development",
	}},
	{domain.CategoryCrime, []string{
		"crime", "murder", "theft", "robbery", "fraud", "scam", "arrest", "police",
		"investigation", "court", "jail", "prison", "criminal", "accused", "victim",
		"fir", "case", "trial", "verdict", "sentence", "bail", "custody",
		"cybercrime", "terrorism", "rape", "assault", "kidnapping",
	}},
	{domain.CategoryInternational, []string{
		"international", "global", "world", "foreign", "country", "nation", "border",
		"diplomatic", "embassy", "trade", "export", "import", "agreement", "treaty",
		"summit", "meeting", "visit", "relations", "pakistan", "china", "usa",
		"uk", "russia", "europe", "asia", "africa", "un", "united nations",
	}},
	{domain.CategoryEnvironment, []string{
		"environment", "climate", "pollution", "air quality", "water", "forest",
		"wildlife", "conservation", "green", "sustainable", "renewable", "carbon",
		"emission", "global warming", "weather", "rain", "drought", "flood",
		"cyclone", "earthquake", "natural disaster", "biodiversity", "ecology",
	}},
	{domain.CategoryEconomy, []string{
		"economy", "economic", "inflation", "deflation", "interest rate", "fiscal",
		"monetary", "budget", "tax", "gst", "gdp", "growth", "recession",
		"recovery", "employment", "unemployment", "jobs", "wages", "salary",
		"income", "poverty", "wealth", "development", "industrial",
	}},
	{domain.CategoryDefense, []string{
		"defense", "defence", "military", "army", "navy", "air force", "soldier",
		"officer", "war", "conflict", "security", "border", "weapon", "missile",
		"fighter jet", "submarine", "tank", "terrorism", "insurgency",
		"peacekeeping", "operation", "strategic", "national security",
	}},
}
