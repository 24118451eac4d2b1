// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import "github.com/taibuivan/yomira-auth/internal/platform/apperr"

// # Domain Errors

// ErrSelfDelete stops an administrator from deleting their own account.
var ErrSelfDelete = apperr.Forbidden("You cannot delete your own account")
