package enrich

var polarity = map[string]float64{
	"amazing":     0.6,
	"awesome":     1.0,
	"beautiful":   0.85,
	"best":        1.0,
	"better":      0.5,
	"clean":       0.37,
	"clear":       0.1,
	"easy":        0.43,
	"elegant":     0.5,
	"excellent":   1.0,
	"fantastic":   0.4,
	"fast":        0.2,
	"fine":        0.42,
	"glad":        0.5,
	"good":        0.7,
	"great":       0.8,
	"happy":       0.8,
	"helpful":     0.5,
	"interesting": 0.5,
	"love":        0.5,
	"nice":        0.6,
	"perfect":     1.0,
	"simple":      0.1,
	"thanks":      0.2,
	"useful":      0.3,
	"wonderful":   1.0,
	"works":       0.2,

	"annoying":     -0.8,
	"awful":        -1.0,
	"bad":          -0.7,
	"broken":       -0.4,
	"confusing":    -0.3,
	"crash":        -0.4,
	"crashes":      -0.4,
	"difficult":    -0.5,
	"disappointed": -0.75,
	"fails":        -0.5,
	"frustrating":  -0.4,
	"hard":         -0.29,
	"hate":         -0.8,
	"horrible":     -1.0,
	"impossible":   -0.67,
	"poor":         -0.4,
	"slow":         -0.3,
	"stupid":       -0.8,
	"terrible":     -1.0,
	"ugly":         -0.7,
	"useless":      -0.5,
	"worse":        -0.4,
	"worst":        -1.0,
	"wrong":        -0.5,
}

var negations = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"don't":   true,
	"doesn't": true,
	"isn't":   true,
	"wasn't":  true,
	"can't":   true,
	"won't":   true,
	"didn't":  true,
}

var intensifiers = map[string]float64{
	"very":       1.3,
	"really":     1.3,
	"extremely":  1.5,
	"super":      1.3,
	"quite":      1.1,
	"somewhat":   0.8,
	"slightly":   0.6,
	"incredibly": 1.5,
}

// stopWords never become tags even when capitalised mid-sentence.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "can": true, "do": true, "does": true,
	"for": true, "from": true, "has": true, "have": true, "how": true,
	"i'm": true, "i've": true, "i'd": true, "i'll": true, "if": true, "in": true,
	"is": true, "it": true, "of": true, "on": true, "or": true, "please": true,
	"so": true, "that": true, "the": true, "this": true, "to": true, "what": true,
	"when": true, "where": true, "which": true, "why": true, "with": true,
	"e.g": true, "i.e": true, "etc": true, "thanks": true,
}
