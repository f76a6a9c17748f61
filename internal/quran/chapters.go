// Package quran holds the fixed chapter catalog the quizzes draw names from.
package quran

import (
	"fmt"
	"strconv"
	"strings"

	"quran-quiz-bot/internal/domain"
)

// ChapterCount is the number of chapters.
const ChapterCount = 114

type entry struct {
	id     int
	name   string
	verses int
}

var catalog = [ChapterCount]entry{
	{1, "Al-Fatihah", 7},
	{2, "Al-Baqarah", 286},
	{3, "Ali 'Imran", 200},
	{4, "An-Nisa", 176},
	{5, "Al-Ma'idah", 120},
	{6, "Al-An'am", 165},
	{7, "Al-A'raf", 206},
	{8, "Al-Anfal", 75},
	{9, "At-Tawbah", 129},
	{10, "Yunus", 109},
	{11, "Hud", 123},
	{12, "Yusuf", 111},
	{13, "Ar-Ra'd", 43},
	{14, "Ibrahim", 52},
	{15, "Al-Hijr", 99},
	{16, "An-Nahl", 128},
	{17, "Al-Isra", 111},
	{18, "Al-Kahf", 110},
	{19, "Maryam", 98},
	{20, "Taha", 135},
	{21, "Al-Anbiya", 112},
	{22, "Al-Hajj", 78},
	{23, "Al-Mu'minun", 118},
	{24, "An-Nur", 64},
	{25, "Al-Furqan", 77},
	{26, "Ash-Shu'ara", 227},
	{27, "An-Naml", 93},
	{28, "Al-Qasas", 88},
	{29, "Al-'Ankabut", 69},
	{30, "Ar-Rum", 60},
	{31, "Luqman", 34},
	{32, "As-Sajdah", 30},
	{33, "Al-Ahzab", 73},
	{34, "Saba", 54},
	{35, "Fatir", 45},
	{36, "Ya-Sin", 83},
	{37, "As-Saffat", 182},
	{38, "Sad", 88},
	{39, "Az-Zumar", 75},
	{40, "Ghafir", 85},
	{41, "Fussilat", 54},
	{42, "Ash-Shuraa", 53},
	{43, "Az-Zukhruf", 89},
	{44, "Ad-Dukhan", 59},
	{45, "Al-Jathiyah", 37},
	{46, "Al-Ahqaf", 35},
	{47, "Muhammad", 38},
	{48, "Al-Fath", 29},
	{49, "Al-Hujurat", 18},
	{50, "Qaf", 45},
	{51, "Adh-Dhariyat", 60},
	{52, "At-Tur", 49},
	{53, "An-Najm", 62},
	{54, "Al-Qamar", 55},
	{55, "Ar-Rahman", 78},
	{56, "Al-Waqi'ah", 96},
	{57, "Al-Hadid", 29},
	{58, "Al-Mujadila", 22},
	{59, "Al-Hashr", 24},
	{60, "Al-Mumtahanah", 13},
	{61, "As-Saff", 14},
	{62, "Al-Jumu'ah", 11},
	{63, "Al-Munafiqun", 11},
	{64, "At-Taghabun", 18},
	{65, "At-Talaq", 12},
	{66, "At-Tahrim", 12},
	{67, "Al-Mulk", 30},
	{68, "Al-Qalam", 52},
	{69, "Al-Haqqah", 52},
	{70, "Al-Ma'arij", 44},
	{71, "Nuh", 28},
	{72, "Al-Jinn", 28},
	{73, "Al-Muzzammil", 20},
	{74, "Al-Muddaththir", 56},
	{75, "Al-Qiyamah", 40},
	{76, "Al-Insan", 31},
	{77, "Al-Mursalat", 50},
	{78, "An-Naba", 40},
	{79, "An-Nazi'at", 46},
	{80, "'Abasa", 42},
	{81, "At-Takwir", 29},
	{82, "Al-Infitar", 19},
	{83, "Al-Mutaffifin", 36},
	{84, "Al-Inshiqaq", 25},
	{85, "Al-Buruj", 22},
	{86, "At-Tariq", 17},
	{87, "Al-A'la", 19},
	{88, "Al-Ghashiyah", 26},
	{89, "Al-Fajr", 30},
	{90, "Al-Balad", 20},
	{91, "Ash-Shams", 15},
	{92, "Al-Layl", 21},
	{93, "Ad-Duhaa", 11},
	{94, "Ash-Sharh", 8},
	{95, "At-Tin", 8},
	{96, "Al-'Alaq", 19},
	{97, "Al-Qadr", 5},
	{98, "Al-Bayyinah", 8},
	{99, "Az-Zalzalah", 8},
	{100, "Al-'Adiyat", 11},
	{101, "Al-Qari'ah", 11},
	{102, "At-Takathur", 8},
	{103, "Al-'Asr", 3},
	{104, "Al-Humazah", 9},
	{105, "Al-Fil", 5},
	{106, "Quraysh", 4},
	{107, "Al-Ma'un", 7},
	{108, "Al-Kawthar", 3},
	{109, "Al-Kafirun", 6},
	{110, "An-Nasr", 3},
	{111, "Al-Masad", 5},
	{112, "Al-Ikhlas", 4},
	{113, "Al-Falaq", 5},
	{114, "An-Nas", 6},
}

// ChapterName returns the transliterated name of chapter id.
func ChapterName(id int) string {
	if id < 1 || id > ChapterCount {
		return fmt.Sprintf("Chapter %d", id)
	}
	return catalog[id-1].name
}

// VerseCount returns the number of verses in chapter id, 0 if unknown.
func VerseCount(id int) int {
	if id < 1 || id > ChapterCount {
		return 0
	}
	return catalog[id-1].verses
}

// ChapterNames lists all names in chapter order.
func ChapterNames() []string {
	out := make([]string, ChapterCount)
	for i, e := range catalog {
		out[i] = e.name
	}
	return out
}

// ChapterLabels lists "N. Name" labels in chapter order.
func ChapterLabels() []string {
	out := make([]string, ChapterCount)
	for i, e := range catalog {
		out[i] = fmt.Sprintf("%d. %s", e.id, e.name)
	}
	return out
}

// Chapter returns the catalog record for id. Only the name and verse count are known here.
func Chapter(id int) domain.Chapter {
	return domain.Chapter{ID: id, NameSimple: ChapterName(id), VersesCount: VerseCount(id)}
}

// ChaptersWithAtLeast returns the chapters having at least n verses.
func ChaptersWithAtLeast(n int) []domain.Chapter {
	var out []domain.Chapter
	for _, e := range catalog {
		if e.verses >= n {
			out = append(out, domain.Chapter{ID: e.id, NameSimple: e.name, VersesCount: e.verses})
		}
	}
	return out
}

// VerseKey formats "chapter:verse".
func VerseKey(chapter, verse int) string {
	return strconv.Itoa(chapter) + ":" + strconv.Itoa(verse)
}

// ParseVerseKey splits "chapter:verse".
func ParseVerseKey(key string) (chapter, verse int, err error) {
	c, v, ok := strings.Cut(key, ":")
	if !ok {
		return 0, 0, fmt.Errorf("verse key %q: missing separator", key)
	}
	if chapter, err = strconv.Atoi(c); err != nil {
		return 0, 0, fmt.Errorf("verse key %q: %w", key, err)
	}
	if verse, err = strconv.Atoi(v); err != nil {
		return 0, 0, fmt.Errorf("verse key %q: %w", key, err)
	}
	return chapter, verse, nil
}

// TotalVerses is the number of verses across all chapters.
const TotalVerses = 6236

// VerseAt maps an index in [0, TotalVerses) to its chapter and verse number.
func VerseAt(i int) (chapter, verse int) {
	if i < 0 || i >= TotalVerses {
		return 0, 0
	}
	for _, e := range catalog {
		if i < e.verses {
			return e.id, i + 1
		}
		i -= e.verses
	}
	return 0, 0
}
