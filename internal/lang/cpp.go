package lang

func init() {
	Register(&LanguageSpec{
		Language:       CPP,
		Role:           Implementation,
		FileExtensions: []string{".cpp", ".cxx", ".cc", ".C", ".c++", ".ixx", ".cppm"},
		DefaultStd:     "c++11",
	})
	Register(&LanguageSpec{
		Language:           CPP,
		Role:               Header,
		FileExtensions:     []string{".hpp", ".hxx", ".hh", ".h++", ".H"},
		DefaultStd:         "c++11",
		SkipFunctionBodies: true,
	})
}
