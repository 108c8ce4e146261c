package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/rewards-system/internal/model"
)

type participantKey struct {
	eventID int64
	userID  int64
}

// MemoryRepository хранит данные в памяти процесса. Каждая коллекция защищена
// собственным мьютексом; агрегаты хранятся по значению, чтение и запись
// выполняются через копии. Используется в тестах и при запуске без БД.
type MemoryRepository struct {
	usersMu    sync.RWMutex
	users      map[string]model.User
	usersByID  map[int64]model.User
	nextUserID int64

	accountsMu sync.RWMutex
	accounts   map[int64]model.PointsAccount

	txMu         sync.RWMutex
	transactions []model.PointsTransaction

	inventoryMu sync.RWMutex
	inventory   map[int64]model.InventoryItem

	redemptionsMu sync.RWMutex
	redemptions   map[uuid.UUID]model.Redemption

	participantsMu  sync.RWMutex
	participants    map[uuid.UUID]model.EventParticipant
	participantKeys map[participantKey]uuid.UUID
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:           map[string]model.User{},
		usersByID:       map[int64]model.User{},
		accounts:        map[int64]model.PointsAccount{},
		inventory:       map[int64]model.InventoryItem{},
		redemptions:     map[uuid.UUID]model.Redemption{},
		participants:    map[uuid.UUID]model.EventParticipant{},
		participantKeys: map[participantKey]uuid.UUID{},
	}
}

// Close освобождает ресурсы хранилища.
func (r *MemoryRepository) Close() error { return nil }

// CreateUser создаёт нового пользователя.
func (r *MemoryRepository) CreateUser(_ context.Context, login string, passwordHash []byte) (int64, error) {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	if _, ok := r.users[login]; ok {
		return 0, ErrUserExists
	}

	r.nextUserID++
	u := model.User{
		ID:           r.nextUserID,
		Login:        login,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	r.users[login] = u
	r.usersByID[u.ID] = u

	return u.ID, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *MemoryRepository) GetUserByLogin(_ context.Context, login string) (*model.User, error) {
	r.usersMu.RLock()
	defer r.usersMu.RUnlock()

	u, ok := r.users[login]
	if !ok {
		return nil, ErrUserNotFound
	}

	return &u, nil
}

// UserExists сообщает, существует ли пользователь с указанным идентификатором.
func (r *MemoryRepository) UserExists(_ context.Context, userID int64) (bool, error) {
	r.usersMu.RLock()
	defer r.usersMu.RUnlock()

	_, ok := r.usersByID[userID]
	return ok, nil
}

// GetOrCreateAccount возвращает счёт пользователя, создавая его при первой необходимости.
func (r *MemoryRepository) GetOrCreateAccount(_ context.Context, userID int64) (*model.PointsAccount, error) {
	r.accountsMu.Lock()
	defer r.accountsMu.Unlock()

	acc, ok := r.accounts[userID]
	if !ok {
		acc = *model.NewPointsAccount(userID)
		r.accounts[userID] = acc
	}

	return &acc, nil
}

// SaveAccount сохраняет состояние счёта пользователя.
func (r *MemoryRepository) SaveAccount(_ context.Context, acc *model.PointsAccount) error {
	r.accountsMu.Lock()
	defer r.accountsMu.Unlock()

	r.accounts[acc.UserID] = *acc

	return nil
}

// AddTransaction добавляет запись в журнал операций с баллами.
func (r *MemoryRepository) AddTransaction(_ context.Context, tx *model.PointsTransaction) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.transactions = append(r.transactions, *tx)

	return nil
}

// GetTransactionsByUser возвращает журнал операций пользователя в порядке создания.
func (r *MemoryRepository) GetTransactionsByUser(_ context.Context, userID int64) ([]model.PointsTransaction, error) {
	r.txMu.RLock()
	defer r.txMu.RUnlock()

	var res []model.PointsTransaction
	for _, tx := range r.transactions {
		if tx.UserID == userID {
			res = append(res, tx)
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})

	return res, nil
}

// SumAwardedPointsForMonth возвращает сумму баллов, начисленных администратором
// участникам событий в указанном месяце.
func (r *MemoryRepository) SumAwardedPointsForMonth(_ context.Context, awardedBy string, year int, month time.Month) (int64, error) {
	r.participantsMu.RLock()
	defer r.participantsMu.RUnlock()

	var total int64
	for _, p := range r.participants {
		if !p.HasAward() || p.AwardedBy == nil || *p.AwardedBy != awardedBy {
			continue
		}
		if p.AwardedAt.Year() == year && p.AwardedAt.Month() == month {
			total += *p.PointsAwarded
		}
	}

	return total, nil
}

// GetInventory возвращает позицию склада для товара.
func (r *MemoryRepository) GetInventory(_ context.Context, productID int64) (*model.InventoryItem, error) {
	r.inventoryMu.RLock()
	defer r.inventoryMu.RUnlock()

	item, ok := r.inventory[productID]
	if !ok {
		return nil, ErrInventoryNotFound
	}

	return &item, nil
}

// SaveInventory сохраняет позицию склада, создавая её при отсутствии.
func (r *MemoryRepository) SaveInventory(_ context.Context, item *model.InventoryItem) error {
	r.inventoryMu.Lock()
	defer r.inventoryMu.Unlock()

	r.inventory[item.ProductID] = *item

	return nil
}

// ListInventoryBelowReorder возвращает позиции, свободный остаток которых достиг порога дозаказа.
func (r *MemoryRepository) ListInventoryBelowReorder(_ context.Context) ([]model.InventoryItem, error) {
	r.inventoryMu.RLock()
	defer r.inventoryMu.RUnlock()

	var res []model.InventoryItem
	for _, item := range r.inventory {
		if item.NeedsReorder() {
			res = append(res, item)
		}
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].ProductID < res[j].ProductID
	})

	return res, nil
}

// CreateRedemption сохраняет новую заявку на обмен.
func (r *MemoryRepository) CreateRedemption(_ context.Context, red *model.Redemption) error {
	r.redemptionsMu.Lock()
	defer r.redemptionsMu.Unlock()

	r.redemptions[red.ID] = *red

	return nil
}

// GetRedemption возвращает заявку на обмен по идентификатору.
func (r *MemoryRepository) GetRedemption(_ context.Context, id uuid.UUID) (*model.Redemption, error) {
	r.redemptionsMu.RLock()
	defer r.redemptionsMu.RUnlock()

	red, ok := r.redemptions[id]
	if !ok {
		return nil, ErrRedemptionNotFound
	}

	return &red, nil
}

// UpdateRedemption сохраняет изменённое состояние заявки.
func (r *MemoryRepository) UpdateRedemption(_ context.Context, red *model.Redemption) error {
	r.redemptionsMu.Lock()
	defer r.redemptionsMu.Unlock()

	if _, ok := r.redemptions[red.ID]; !ok {
		return ErrRedemptionNotFound
	}

	r.redemptions[red.ID] = *red

	return nil
}

// GetRedemptionsByUser возвращает заявки пользователя, новые первыми.
func (r *MemoryRepository) GetRedemptionsByUser(_ context.Context, userID int64) ([]model.Redemption, error) {
	r.redemptionsMu.RLock()
	defer r.redemptionsMu.RUnlock()

	var res []model.Redemption
	for _, red := range r.redemptions {
		if red.UserID == userID {
			res = append(res, red)
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].RequestedAt.After(res[j].RequestedAt)
	})

	return res, nil
}

// HasPendingRedemption сообщает, есть ли у пользователя необработанная заявка на этот товар.
func (r *MemoryRepository) HasPendingRedemption(_ context.Context, userID, productID int64) (bool, error) {
	r.redemptionsMu.RLock()
	defer r.redemptionsMu.RUnlock()

	for _, red := range r.redemptions {
		if red.UserID == userID && red.ProductID == productID && red.Status == model.RedemptionStatusPending {
			return true, nil
		}
	}

	return false, nil
}

// CreateParticipant регистрирует участника события.
func (r *MemoryRepository) CreateParticipant(_ context.Context, p *model.EventParticipant) error {
	r.participantsMu.Lock()
	defer r.participantsMu.Unlock()

	key := participantKey{eventID: p.EventID, userID: p.UserID}
	if _, ok := r.participantKeys[key]; ok {
		return ErrParticipantExists
	}

	r.participants[p.ID] = *p
	r.participantKeys[key] = p.ID

	return nil
}

// GetParticipant возвращает участника события по идентификатору.
func (r *MemoryRepository) GetParticipant(_ context.Context, id uuid.UUID) (*model.EventParticipant, error) {
	r.participantsMu.RLock()
	defer r.participantsMu.RUnlock()

	p, ok := r.participants[id]
	if !ok {
		return nil, ErrParticipantNotFound
	}

	return &p, nil
}

// UpdateParticipant сохраняет изменённое состояние участника.
func (r *MemoryRepository) UpdateParticipant(_ context.Context, p *model.EventParticipant) error {
	r.participantsMu.Lock()
	defer r.participantsMu.Unlock()

	if _, ok := r.participants[p.ID]; !ok {
		return ErrParticipantNotFound
	}

	r.participants[p.ID] = *p

	return nil
}
