package domain

// knownCategories maps Codigo values used in the source spreadsheets to their
// category labels.
var knownCategories = map[int]string{
	8888: "Gasolina",
	2222: "Gasto Pessoal",
	9999: "Investimento",
	3333: "Salário",
	4444: "Uber Driver",
	1211: "Pedágio",
	1411: "Manutenção",
	5555: "Imposto",
	1311: "Lalamove",
}

// CategoryForCode returns the label registered for a category code.
func CategoryForCode(code int) (string, bool) {
	name, ok := knownCategories[code]
	return name, ok
}
