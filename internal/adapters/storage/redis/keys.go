package redis

// keySet monta as chaves do layout persistido sob o prefixo de namespace
// configurado.
//
// Layout:
//
//	P:REALMS:<realm>         hash   {max_requests, timespan}
//	P:REALMS                 set    índice de realms registrados
//	P:REQUEST:<realm>:<uuid> string lease com TTL = timespan do realm
//	P:WINDOW:<realm>         zset   membro = uuid, score = expiração unix em ms
type keySet struct {
	prefix string
}

func (k keySet) index() string {
	return k.prefix + ":REALMS"
}

func (k keySet) realm(name string) string {
	return k.prefix + ":REALMS:" + name
}

func (k keySet) lease(realm, id string) string {
	return k.prefix + ":REQUEST:" + realm + ":" + id
}

func (k keySet) leasePattern(realm string) string {
	return k.prefix + ":REQUEST:" + realm + ":*"
}

func (k keySet) window(realm string) string {
	return k.prefix + ":WINDOW:" + realm
}
