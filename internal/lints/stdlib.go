package lints

import (
	"slices"
	"strings"
)

// stdHeaders lists the functions and function-like macros each standard
// header declares. Headers missing from the table are unknown and may
// declare anything.
var stdHeaders = map[string][]string{
	"assert.h": {"assert"},
	"ctype.h": {
		"isalnum", "isalpha", "isblank", "iscntrl", "isdigit", "isgraph", "islower",
		"isprint", "ispunct", "isspace", "isupper", "isxdigit", "tolower", "toupper",
	},
	"errno.h":    {},
	"float.h":    {},
	"inttypes.h": {"imaxabs", "imaxdiv", "strtoimax", "strtoumax", "wcstoimax", "wcstoumax"},
	"iso646.h":   {},
	"limits.h":   {},
	"locale.h":   {"setlocale", "localeconv"},
	"math.h":     mathFunctions,
	"setjmp.h":   {"setjmp", "longjmp"},
	"signal.h":   {"signal", "raise"},
	"stdalign.h": {},
	"stdarg.h":   {"va_start", "va_arg", "va_end", "va_copy"},
	"stdbool.h":  {},
	"stddef.h":   {"offsetof"},
	"stdint.h":   {},
	"stdio.h": {
		"remove", "rename", "tmpfile", "tmpnam", "fclose", "fflush", "fopen", "freopen",
		"setbuf", "setvbuf", "fprintf", "fscanf", "printf", "scanf", "snprintf", "sprintf",
		"sscanf", "vfprintf", "vfscanf", "vprintf", "vscanf", "vsnprintf", "vsprintf",
		"vsscanf", "fgetc", "fgets", "fputc", "fputs", "getc", "getchar", "gets", "putc",
		"putchar", "puts", "ungetc", "fread", "fwrite", "fgetpos", "fseek", "fsetpos",
		"ftell", "rewind", "clearerr", "feof", "ferror", "perror",
	},
	"stdlib.h": {
		"atof", "atoi", "atol", "atoll", "strtod", "strtof", "strtold", "strtol", "strtoll",
		"strtoul", "strtoull", "rand", "srand", "aligned_alloc", "calloc", "free", "malloc",
		"realloc", "abort", "atexit", "at_quick_exit", "exit", "_Exit", "getenv",
		"quick_exit", "system", "bsearch", "qsort", "abs", "labs", "llabs", "div", "ldiv",
		"lldiv", "mblen", "mbtowc", "wctomb", "mbstowcs", "wcstombs",
	},
	"string.h": {
		"memcpy", "memmove", "strcpy", "strncpy", "strcat", "strncat", "memcmp", "strcmp",
		"strcoll", "strncmp", "strxfrm", "memchr", "strchr", "strcspn", "strpbrk",
		"strrchr", "strspn", "strstr", "strtok", "memset", "strerror", "strlen",
	},
	"tgmath.h": mathFunctions,
	"time.h": {
		"clock", "difftime", "mktime", "time", "timespec_get", "asctime", "ctime",
		"gmtime", "localtime", "strftime",
	},
}

var mathFunctions = []string{
	"acos", "asin", "atan", "atan2", "cos", "sin", "tan", "acosh", "asinh", "atanh",
	"cosh", "sinh", "tanh", "exp", "exp2", "expm1", "frexp", "ilogb", "ldexp", "log",
	"log10", "log1p", "log2", "logb", "modf", "scalbn", "scalbln", "cbrt", "fabs",
	"hypot", "pow", "sqrt", "erf", "erfc", "lgamma", "tgamma", "ceil", "floor",
	"nearbyint", "rint", "lrint", "llrint", "round", "lround", "llround", "trunc",
	"fmod", "remainder", "remquo", "copysign", "nan", "nextafter", "nexttoward",
	"fdim", "fmax", "fmin", "fma",
}

// voidFunctions are the standard functions that return nothing.
var voidFunctions = map[string]bool{
	"abort": true, "exit": true, "_Exit": true, "quick_exit": true, "free": true,
	"qsort": true, "srand": true, "setbuf": true, "rewind": true, "clearerr": true,
	"perror": true, "longjmp": true, "va_start": true, "va_end": true, "va_copy": true,
	"assert": true,
}

func headerName(include string) string {
	return strings.Trim(include, `<>"`)
}

// knownHeader reports whether the include names a header of the table.
func knownHeader(include string) bool {
	_, ok := stdHeaders[headerName(include)]
	return ok && strings.HasPrefix(include, "<")
}

// stdDeclares reports whether the standard header declares fn.
func stdDeclares(header, fn string) bool {
	return slices.Contains(stdHeaders[headerName(header)], fn)
}

// isStdFunction reports whether any standard header declares fn.
func isStdFunction(fn string) bool {
	for _, funcs := range stdHeaders {
		if slices.Contains(funcs, fn) {
			return true
		}
	}
	return false
}
