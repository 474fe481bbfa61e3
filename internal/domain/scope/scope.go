// Package scopeは操作ユーザーごとの注文・支払いの可視範囲を扱う。
package scope

import "backoffice/internal/domain/model"

// Scopeは注文と支払いの一覧・取得に掛けるフィルタ。
// Allでなければ BuyerID / SellerID の条件のOR。両方nilなら何も見えない。
type Scope struct {
	All      bool
	BuyerID  *int64
	SellerID *int64
}

// Forはidentityからスコープを作る。adminは無制限。
func For(actor model.Identity) Scope {
	if actor.IsAdmin() {
		return Scope{All: true}
	}
	var s Scope
	if actor.Has(model.RoleSeller) {
		id := actor.ID
		s.SellerID = &id
	}
	if actor.Has(model.RoleBuyer) {
		id := actor.ID
		s.BuyerID = &id
	}
	return s
}

// Emptyは何にもマッチしないか
func (s Scope) Empty() bool {
	return !s.All && s.BuyerID == nil && s.SellerID == nil
}
