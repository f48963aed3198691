package resale

// tableRow is one CH resale bracket for a 911 variant. Aliases are lowercase.
type tableRow struct {
	aliases    []string
	yearFrom   int
	yearTo     int
	mileageMax int
	low        int
	median     int
	high       int
}

var porsche911Table = []tableRow{
	// GT3 RS 992
	{[]string{"gt3 rs"}, 2022, 2026, 20000, 290000, 330000, 390000},
	// GT3 992
	{[]string{"gt3"}, 2021, 2026, 15000, 215000, 250000, 290000},
	{[]string{"gt3"}, 2021, 2026, 50000, 190000, 225000, 260000},
	// GT3 991.2
	{[]string{"gt3"}, 2017, 2020, 30000, 155000, 180000, 210000},
	{[]string{"gt3"}, 2017, 2020, 80000, 130000, 155000, 180000},
	// Turbo S 992
	{[]string{"turbo s"}, 2020, 2026, 30000, 195000, 230000, 265000},
	{[]string{"turbo s"}, 2020, 2026, 80000, 165000, 195000, 225000},
	// Turbo S 991.2
	{[]string{"turbo s"}, 2016, 2019, 50000, 140000, 165000, 190000},
	{[]string{"turbo s"}, 2016, 2019, 120000, 115000, 135000, 155000},
	// Turbo 992
	{[]string{"turbo"}, 2020, 2026, 30000, 155000, 185000, 215000},
	{[]string{"turbo"}, 2020, 2026, 80000, 130000, 160000, 185000},
	// Turbo 991.2
	{[]string{"turbo"}, 2016, 2019, 50000, 110000, 130000, 150000},
	{[]string{"turbo"}, 2016, 2019, 120000, 88000, 108000, 125000},
	// Carrera 4S 992
	{[]string{"carrera 4s", "c4s"}, 2019, 2026, 30000, 115000, 135000, 155000},
	{[]string{"carrera 4s", "c4s"}, 2019, 2026, 80000, 95000, 115000, 132000},
	// Carrera 4S 991.2
	{[]string{"carrera 4s", "c4s"}, 2016, 2019, 50000, 82000, 98000, 115000},
	{[]string{"carrera 4s", "c4s"}, 2016, 2019, 120000, 65000, 80000, 95000},
	// Carrera S 992
	{[]string{"carrera s", "cs"}, 2019, 2026, 30000, 105000, 125000, 148000},
	{[]string{"carrera s", "cs"}, 2019, 2026, 80000, 88000, 108000, 128000},
	// Carrera S 991.2
	{[]string{"carrera s", "cs"}, 2016, 2019, 50000, 75000, 90000, 108000},
	{[]string{"carrera s", "cs"}, 2016, 2019, 120000, 58000, 72000, 87000},
	// Carrera 992
	{[]string{"carrera"}, 2019, 2026, 30000, 88000, 105000, 122000},
	{[]string{"carrera"}, 2019, 2026, 80000, 72000, 88000, 105000},
	// Carrera 991.2
	{[]string{"carrera"}, 2016, 2019, 50000, 62000, 76000, 91000},
	{[]string{"carrera"}, 2016, 2019, 120000, 48000, 60000, 74000},
	// Targa 992
	{[]string{"targa"}, 2020, 2026, 40000, 100000, 120000, 142000},
	// Targa 991
	{[]string{"targa"}, 2014, 2019, 60000, 68000, 82000, 98000},
	// Cabriolet 992
	{[]string{"cabriolet", "cab", "cabrio", "convertible"}, 2019, 2026, 40000, 95000, 115000, 138000},
	// GTS 992
	{[]string{"gts"}, 2021, 2026, 30000, 135000, 160000, 188000},
	{[]string{"gts"}, 2021, 2026, 80000, 115000, 138000, 162000},
}
