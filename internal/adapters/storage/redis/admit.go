package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
	"github.com/SerpentAI/selenium-respectful/internal/core/ports"
)

// admitScript executa a checagem de headroom e a emissão de leases de todos
// os realms como uma única operação indivisível no Redis, eliminando a
// corrida check-then-act entre processos concorrentes.
//
// KEYS: n window keys seguidas das n lease keys correspondentes.
// ARGV: [1] = now (unix ms); depois, por realm: nome, capacidade,
// ttl em segundos, uuid. Scores do zset ficam em milissegundos para
// concordar com a expiração real das lease keys.
// Retorna a lista de realms saturados; vazia significa concedido.
var admitScript = redis.NewScript(`
local n = #KEYS / 2
local now = tonumber(ARGV[1])
local saturated = {}

for i = 1, n do
	local window = KEYS[i]
	redis.call("ZREMRANGEBYSCORE", window, "-inf", now)
	local active = redis.call("ZCARD", window)
	local capacity = tonumber(ARGV[(i - 1) * 4 + 3])
	if active >= capacity then
		saturated[#saturated + 1] = ARGV[(i - 1) * 4 + 2]
	end
end

if #saturated > 0 then
	return saturated
end

for i = 1, n do
	local window = KEYS[i]
	local ttl = tonumber(ARGV[(i - 1) * 4 + 4])
	local id = ARGV[(i - 1) * 4 + 5]
	redis.call("ZADD", window, now + ttl * 1000, id)
	redis.call("EXPIRE", window, ttl)
	redis.call("SETEX", KEYS[n + i], ttl, id)
end

return saturated
`)

func (s *Storage) Admit(ctx context.Context, requests []ports.LeaseRequest) ([]domain.Lease, []string, error) {
	if len(requests) == 0 {
		return nil, nil, fmt.Errorf("at least one lease request is required")
	}

	now := time.Now()
	keys := make([]string, 0, len(requests)*2)
	args := make([]any, 0, len(requests)*4+1)
	args = append(args, now.UnixMilli())

	leases := make([]domain.Lease, 0, len(requests))
	for _, request := range requests {
		id := uuid.NewString()
		keys = append(keys, s.keys.window(request.Realm))
		args = append(args,
			request.Realm,
			request.Capacity,
			int64(request.TTL/time.Second),
			id,
		)
		leases = append(leases, domain.Lease{
			Realm:     request.Realm,
			ID:        id,
			ExpiresAt: now.Add(request.TTL),
		})
	}
	for i, request := range requests {
		keys = append(keys, s.keys.lease(request.Realm, leases[i].ID))
	}

	result, err := admitScript.Run(ctx, s.client, keys, args...).Result()
	if err != nil {
		return nil, nil, err
	}

	raw, ok := result.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected admission script reply of type %T", result)
	}
	if len(raw) == 0 {
		return leases, nil, nil
	}

	saturated := make([]string, 0, len(raw))
	for _, entry := range raw {
		name, ok := entry.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected realm name of type %T in admission script reply", entry)
		}
		saturated = append(saturated, name)
	}
	return nil, saturated, nil
}
