package commission

// Amount calcula la comisión del vendedor en centavos enteros a partir de la
// tasa en puntos básicos (10000 bp = 100%). El redondeo es siempre hacia
// abajo: la casa nunca paga fracciones de centavo de más.
func Amount(totalWagerCents, rateBp int64) int64 {
	if totalWagerCents <= 0 || rateBp <= 0 {
		return 0
	}
	return totalWagerCents * rateBp / 10000
}
